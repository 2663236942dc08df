package backend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/backend"
	"pulse/internal/config"
	"pulse/internal/dialect"
	"pulse/internal/query"
	"pulse/internal/testsupport"
)

func TestRelationalReusesPositionalSlots(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	exec := backend.NewRelational(db)

	rows, err := exec.Query(context.Background(),
		"select {{a}} as first_value, {{b}} as second_value, {{a}} as third_value",
		query.Params{"a": "x", "b": int64(7)})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "x", rows[0]["first_value"])
	assert.EqualValues(t, 7, rows[0]["second_value"])
	assert.Equal(t, "x", rows[0]["third_value"])
}

func TestRelationalReturnsPlainValues(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	exec := backend.NewRelational(db)

	rows, err := exec.Query(context.Background(), "select {{a}} as label, null as missing", query.Params{"a": "x"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.IsType(t, "", rows[0]["label"])
	assert.Nil(t, rows[0]["missing"])
}

func TestRelationalErrors(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	exec := backend.NewRelational(db)

	t.Run("missing parameter is not a backend error", func(t *testing.T) {
		_, err := exec.Query(context.Background(), "select {{a}}", query.Params{})
		var missing *query.MissingParamError
		assert.True(t, errors.As(err, &missing))
		var qe *backend.QueryError
		assert.False(t, errors.As(err, &qe))
	})

	t.Run("sql errors are query errors", func(t *testing.T) {
		_, err := exec.Query(context.Background(), "select * from no_such_table", nil)
		var qe *backend.QueryError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, dialect.Relational, qe.Backend)
		assert.NotNil(t, errors.Unwrap(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := exec.Query(ctx, "select 1 as one", nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestInstrumented(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := backend.NewMetrics(reg)
	require.NoError(t, err)

	fake := testsupport.NewFakeExecutor(dialect.ClickHouse{}).
		On("from website_event", backend.Row{"x": 1}).
		OnError("from broken", errors.New("code: 60, table does not exist"))
	exec := backend.NewInstrumented(fake, testsupport.GetLogger(), metrics)

	assert.Equal(t, dialect.Columnar, exec.Dialect().Name())

	rows, err := exec.Query(context.Background(), "select x from website_event", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = exec.Query(context.Background(), "select x from broken", nil)
	var qe *backend.QueryError
	require.True(t, errors.As(err, &qe))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Errors.WithLabelValues("columnar", "backend")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.Duration))

	_, err = backend.NewMetrics(reg)
	assert.Error(t, err, "registering twice must fail")

	assert.NoError(t, exec.Close())
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := backend.New(context.Background(), &config.Config{}, nil, testsupport.GetLogger(), prometheus.NewRegistry())
	assert.ErrorIs(t, err, config.ErrNoBackend)
}

func TestNewReusesGivenRelationalPool(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	cfg := &config.Config{DatabaseURL: "postgres://pulse@unreachable.invalid:5432/pulse"}

	exec, err := backend.New(context.Background(), cfg, db, testsupport.GetLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, dialect.Relational, exec.Dialect().Name())

	rows, err := exec.Query(context.Background(), "select 1 as one", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0]["one"])
}

func TestRecorderRendersWithoutRunning(t *testing.T) {
	rec := backend.NewRecorder(dialect.ClickHouse{})

	rows, err := rec.Query(context.Background(),
		"select 1 from website_event where website_id = {{websiteId::uuid}}",
		query.Params{"websiteId": "7d8a2f1e-0c3b-4d5e-9f6a-1b2c3d4e5f60"})
	require.NoError(t, err)
	assert.Empty(t, rows)

	recorded := rec.Recorded()
	require.Len(t, recorded, 1)
	assert.Contains(t, recorded[0].Statement.SQL, "{websiteId:UUID}")
	assert.Equal(t, "7d8a2f1e-0c3b-4d5e-9f6a-1b2c3d4e5f60", recorded[0].Statement.Named["websiteId"])

	_, err = rec.Query(context.Background(), "select {{missing}}", nil)
	var missing *query.MissingParamError
	assert.True(t, errors.As(err, &missing))
}
