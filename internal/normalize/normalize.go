// Package normalize coerces driver-specific values into the plain float64 /
// string shapes analytics results are returned in.
//
// Counts that exceed 2^53 lose precision when converted to float64. Analytics
// counts never get near that, so the conversion is accepted as lossy.
package normalize

import (
	"database/sql"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Float converts a numeric column value to float64. Nil, NULL and values
// that are not numbers yield 0.
func Float(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case decimal.Decimal:
		f, _ := n.Float64()
		return f
	case *big.Int:
		if n == nil {
			return 0
		}
		f, _ := new(big.Float).SetInt(n).Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if n {
			return 1
		}
		return 0
	case sql.NullInt64:
		if !n.Valid {
			return 0
		}
		return float64(n.Int64)
	case sql.NullFloat64:
		if !n.Valid {
			return 0
		}
		return n.Float64
	case decimal.NullDecimal:
		if !n.Valid {
			return 0
		}
		f, _ := n.Decimal.Float64()
		return f
	}

	// Nullable ClickHouse columns scan into pointers.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return 0
		}
		return Float(rv.Elem().Interface())
	}
	return 0
}

// Int is Float truncated to an int.
func Int(v any) int {
	return int(Float(v))
}

// String converts a label column value to a string. UUIDs render in their
// canonical form and NULL becomes "".
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case uuid.UUID:
		return s.String()
	case [16]byte:
		return uuid.UUID(s).String()
	case sql.NullString:
		if !s.Valid {
			return ""
		}
		return s.String
	case time.Time:
		return s.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return s.String()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return String(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

// IsNull reports whether a column value is SQL NULL. Nullable ClickHouse
// columns arrive as typed nil pointers, which a plain == nil misses.
func IsNull(v any) bool {
	switch n := v.(type) {
	case nil:
		return true
	case sql.NullString:
		return !n.Valid
	case sql.NullInt64:
		return !n.Valid
	case sql.NullFloat64:
		return !n.Valid
	case decimal.NullDecimal:
		return !n.Valid
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// Ratio divides a by b, returning 0 when b is 0.
func Ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
