package backend

import (
	"context"

	"gorm.io/gorm"

	"pulse/internal/database"
	"pulse/internal/dialect"
	"pulse/internal/query"
)

// Relational runs queries on PostgreSQL through gorm. Rendered SQL uses $n
// markers and passes no ? or @ through, so gorm forwards it and the
// positional arguments to the driver untouched.
type Relational struct {
	db      *gorm.DB
	dialect dialect.Postgres
}

func NewRelational(db *gorm.DB) *Relational {
	return &Relational{db: db}
}

func (r *Relational) Dialect() dialect.Dialect {
	return r.dialect
}

func (r *Relational) Query(ctx context.Context, text string, params query.Params) ([]Row, error) {
	stmt, err := r.dialect.Render(text, params)
	if err != nil {
		return nil, err
	}

	rows := []Row{}
	if err := r.db.WithContext(ctx).Raw(stmt.SQL, stmt.Args...).Scan(&rows).Error; err != nil {
		return nil, &QueryError{Backend: dialect.Relational, Err: err}
	}
	for _, row := range rows {
		unwrapRow(row)
	}
	return rows, nil
}

// unwrapRow replaces the *interface{} holders gorm scans map rows into with
// the values they point at.
func unwrapRow(row Row) {
	for k, v := range row {
		for {
			p, ok := v.(*any)
			if !ok {
				break
			}
			if p == nil {
				v = nil
				break
			}
			v = *p
		}
		row[k] = v
	}
}

func (r *Relational) Close() error {
	return database.Close(r.db)
}
