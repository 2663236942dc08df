package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pulse/internal/query"
	"pulse/internal/timeframe"
)

// ClickHouse is the columnar dialect. Parameters are bound server side, so
// every value is sent as text and parsed by the server as the declared type.
type ClickHouse struct{}

const clickhouseTimeLayout = "2006-01-02 15:04:05.000"

var clickhouseTypes = map[string]string{
	"uuid":        "UUID",
	"int":         "Int64",
	"bigint":      "Int64",
	"float":       "Float64",
	"numeric":     "Float64",
	"text":        "String",
	"varchar":     "String",
	"timestamp":   "DateTime64(3, 'UTC')",
	"timestamptz": "DateTime64(3, 'UTC')",
	"text[]":      "Array(String)",
}

var truncFunctions = map[timeframe.Unit]string{
	timeframe.UnitHour:  "toStartOfHour(%s, '%s')",
	timeframe.UnitDay:   "toStartOfDay(%s, '%s')",
	timeframe.UnitWeek:  "toStartOfWeek(%s, 1, '%s')",
	timeframe.UnitMonth: "toStartOfMonth(%s, '%s')",
	timeframe.UnitYear:  "toStartOfYear(%s, '%s')",
}

func (ClickHouse) Name() Name { return Columnar }

func (ClickHouse) Tables() Tables {
	return Tables{Event: "website_event", Session: "website_event", Revenue: "website_revenue"}
}

func (ClickHouse) InlineSessionColumns() bool { return true }

func (ClickHouse) DateTrunc(field string, unit timeframe.Unit, tz string) string {
	fn, ok := truncFunctions[unit]
	if !ok {
		unit = timeframe.UnitDay
		fn = truncFunctions[unit]
	}
	if tz == "" {
		tz = "UTC"
	}
	layout := "%Y-%m-%d 00:00:00"
	if unit == timeframe.UnitHour {
		layout = "%Y-%m-%d %H:00:00"
	}
	return fmt.Sprintf("formatDateTime(%s, '%s')", fmt.Sprintf(fn, field, tz), layout)
}

func (ClickHouse) TimestampDiffSeconds(start, end string) string {
	return fmt.Sprintf("dateDiff('second', %s, %s)", start, end)
}

func (ClickHouse) MultiMatch(column string, candidates []string) string {
	if len(candidates) == 0 {
		return "false"
	}
	quoted := make([]string, len(candidates))
	for i, c := range candidates {
		quoted[i] = quoteLiteral(c)
	}
	return fmt.Sprintf("multiSearchAnyCaseInsensitive(%s, [%s])", column, strings.Join(quoted, ", "))
}

func (ClickHouse) Contains(column, placeholder string) string {
	return fmt.Sprintf("positionCaseInsensitive(%s, %s) > 0", column, placeholder)
}

func (ClickHouse) InList(column, placeholder string) string {
	return fmt.Sprintf("has(%s, %s)", placeholder, column)
}

func (ClickHouse) CountDistinct(expr string) string {
	return "uniqExact(" + expr + ")"
}

// Lag uses lagInFrame, which yields the type default instead of NULL on the
// first row of a partition.
func (ClickHouse) Lag(expr, partition, order string) string {
	return fmt.Sprintf("lagInFrame(%s) over (partition by %s order by %s rows between unbounded preceding and current row)", expr, partition, order)
}

func (ClickHouse) AddMinutes(expr, name string) string {
	return fmt.Sprintf("%s + toIntervalMinute(%s)", expr, query.PT(name, "int"))
}

// Render rewrites placeholders into {name:Type}. The type comes from the
// hint when there is one, otherwise from the Go type of the bound value.
func (ClickHouse) Render(text string, params query.Params) (Statement, error) {
	named := map[string]string{}

	sql, err := query.Expand(text, params, func(ph query.Placeholder, value any) (string, error) {
		typ, ok := clickhouseTypes[strings.ToLower(ph.Type)]
		if !ok {
			if ph.Type != "" {
				return "", fmt.Errorf("dialect: unsupported type hint %q for %q", ph.Type, ph.Name)
			}
			typ = inferClickHouseType(value)
		}
		formatted, err := formatClickHouseValue(value)
		if err != nil {
			return "", fmt.Errorf("dialect: parameter %q: %w", ph.Name, err)
		}
		named[ph.Name] = formatted
		return "{" + ph.Name + ":" + typ + "}", nil
	})
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Named: named}, nil
}

func (ClickHouse) Paginate(text string, page, pageSize int) string {
	return paginate(text, page, pageSize)
}

func inferClickHouseType(value any) string {
	switch value.(type) {
	case time.Time, *time.Time:
		return "DateTime64(3, 'UTC')"
	case uuid.UUID:
		return "UUID"
	case int, int8, int16, int32, int64:
		return "Int64"
	case uint, uint8, uint16, uint32, uint64:
		return "UInt64"
	case float32, float64, decimal.Decimal:
		return "Float64"
	case bool:
		return "Bool"
	case []string:
		return "Array(String)"
	default:
		return "String"
	}
}

func formatClickHouseValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", fmt.Errorf("nil value")
	case string:
		return v, nil
	case time.Time:
		return v.UTC().Format(clickhouseTimeLayout), nil
	case *time.Time:
		if v == nil {
			return "", fmt.Errorf("nil time")
		}
		return v.UTC().Format(clickhouseTimeLayout), nil
	case uuid.UUID:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case decimal.Decimal:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case []string:
		quoted := make([]string, len(v))
		for i, s := range v {
			quoted[i] = quoteLiteral(s)
		}
		return "[" + strings.Join(quoted, ",") + "]", nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}
