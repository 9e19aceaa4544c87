package generator

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Inflator turns a literal default value into a SQL literal.
type Inflator interface {
	Inflate(v any) string
}

// InflatorFunc adapts a function to the Inflator interface.
type InflatorFunc func(v any) string

func (f InflatorFunc) Inflate(v any) string { return f(v) }

const timestampLayout = "2006-01-02 15:04:05"

// MySQLInflator renders literals for MySQL.
type MySQLInflator struct{}

func (MySQLInflator) Inflate(v any) string {
	return formatValue(v, mysqlQuote, func(b []byte) string {
		return "X'" + hex.EncodeToString(b) + "'"
	}, boolKeyword)
}

// PostgresInflator renders literals for PostgreSQL.
type PostgresInflator struct{}

func (PostgresInflator) Inflate(v any) string {
	return formatValue(v, pq.QuoteLiteral, func(b []byte) string {
		return `'\x` + hex.EncodeToString(b) + `'::bytea`
	}, boolKeyword)
}

// SQLiteInflator renders literals for SQLite, which stores booleans as
// integers.
type SQLiteInflator struct{}

func (SQLiteInflator) Inflate(v any) string {
	return formatValue(v, standardQuote, func(b []byte) string {
		return "X'" + hex.EncodeToString(b) + "'"
	}, func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	})
}

func formatValue(val any, quote func(string) string, blob func([]byte) string, boolean func(bool) string) string {
	if val == nil {
		return "NULL"
	}

	switch v := val.(type) {
	case string:
		return quote(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return boolean(v)
	case time.Time:
		return quote(v.Format(timestampLayout))
	case []byte:
		return blob(v)
	default:
		return quote(fmt.Sprintf("%v", v))
	}
}

func boolKeyword(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func standardQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func mysqlQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
