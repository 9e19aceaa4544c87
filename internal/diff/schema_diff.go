package diff

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/koba/dbsync/internal/schema"
)

// Flag represents the type of change to a column
type Flag string

const (
	Added    Flag = "A"
	Dropped  Flag = "D"
	Modified Flag = "M"
)

func (f Flag) String() string {
	switch f {
	case Added:
		return "ADD"
	case Dropped:
		return "DROP"
	case Modified:
		return "MODIFY"
	}
	return "UNKNOWN(" + string(f) + ")"
}

// ColumnDiff represents a change to a column. Before is nil for Added and
// After is nil for Dropped; Modified carries both.
type ColumnDiff struct {
	Flag   Flag
	Name   string
	Before *schema.Column
	After  *schema.Column
}

// Normalizer maps a column onto the spelling a dialect stores it under.
type Normalizer func(schema.Column) schema.Column

// Compare returns the column changes that turn before into after. Columns
// of before come first in their original order, followed by columns only
// present in after in declaration order. A nil schema counts as empty.
func Compare(before, after *schema.Schema) []ColumnDiff {
	return CompareWith(before, after, nil)
}

// CompareWith is Compare with both sides passed through normalize before
// their attributes are compared. The diffs still carry the columns as
// given.
func CompareWith(before, after *schema.Schema, normalize Normalizer) []ColumnDiff {
	var beforeCols, afterCols []schema.Column
	if before != nil {
		beforeCols = before.Columns()
	}
	if after != nil {
		afterCols = after.Columns()
	}

	oldColumns := make(map[string]*schema.Column, len(beforeCols))
	for i := range beforeCols {
		oldColumns[beforeCols[i].Name] = &beforeCols[i]
	}

	newColumns := make(map[string]*schema.Column, len(afterCols))
	for i := range afterCols {
		newColumns[afterCols[i].Name] = &afterCols[i]
	}

	var diffs []ColumnDiff

	// Find dropped and modified columns
	for i := range beforeCols {
		oldCol := &beforeCols[i]
		newCol, exists := newColumns[oldCol.Name]
		if !exists {
			diffs = append(diffs, ColumnDiff{
				Flag:   Dropped,
				Name:   oldCol.Name,
				Before: oldCol,
			})
			continue
		}
		if !columnsEqual(normalized(oldCol, normalize), normalized(newCol, normalize)) {
			diffs = append(diffs, ColumnDiff{
				Flag:   Modified,
				Name:   oldCol.Name,
				Before: oldCol,
				After:  newCol,
			})
		}
	}

	// Find added columns
	for i := range afterCols {
		newCol := &afterCols[i]
		if _, exists := oldColumns[newCol.Name]; !exists {
			diffs = append(diffs, ColumnDiff{
				Flag:  Added,
				Name:  newCol.Name,
				After: newCol,
			})
		}
	}

	return diffs
}

func normalized(c *schema.Column, normalize Normalizer) *schema.Column {
	if normalize == nil {
		return c
	}
	n := normalize(*c)
	return &n
}

// columnsEqual compares the attribute tuple of two columns. A primary key
// is unique already, so Unique only counts on non-primary columns.
func columnsEqual(a, b *schema.Column) bool {
	return a.Type == b.Type &&
		a.Length == b.Length &&
		a.Precision == b.Precision &&
		a.Unsigned == b.Unsigned &&
		a.Kind == b.Kind &&
		a.Required == b.Required &&
		a.Primary == b.Primary &&
		a.AutoIncrement == b.AutoIncrement &&
		(a.Unique && !a.Primary) == (b.Unique && !b.Primary) &&
		defaultsEqual(a.Default, b.Default)
}

// computedSentinel stands in for every computed default.
const computedSentinel = "\x00computed"

// defaultsEqual compares normalized defaults. Computed defaults never reach
// the DDL, so a computed default also matches a column without default.
func defaultsEqual(a, b schema.Default) bool {
	na, nb := NormalizeDefault(a), NormalizeDefault(b)
	if na == computedSentinel && b.Kind == schema.NoDefault ||
		nb == computedSentinel && a.Kind == schema.NoDefault {
		return true
	}
	return na == nb
}

// NormalizeDefault returns the comparable text of a default value.
func NormalizeDefault(d schema.Default) string {
	switch d.Kind {
	case schema.LiteralDefault:
		return "lit:" + literalText(d.Value)
	case schema.RawDefault:
		return "raw:" + strings.ToLower(strings.TrimSpace(d.Expr))
	case schema.ComputedDefault:
		return computedSentinel
	}
	return ""
}

func literalText(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.FormatInt(int64(val), 10)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
