package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnknownType is returned when a raw column type cannot be classified.
var ErrUnknownType = errors.New("unknown column type")

// SemanticKind is the value domain of a column, independent of how a
// dialect spells the type.
type SemanticKind string

const (
	KindString   SemanticKind = "string"
	KindInteger  SemanticKind = "integer"
	KindBoolean  SemanticKind = "boolean"
	KindDouble   SemanticKind = "double"
	KindFloat    SemanticKind = "float"
	KindPoint    SemanticKind = "point"
	KindDateTime SemanticKind = "datetime"
)

// TypeInfo is the canonical form of a type string reported by a catalog.
type TypeInfo struct {
	Raw       string       `json:"raw"`
	Type      string       `json:"type"`
	Length    int          `json:"length,omitempty"`
	Precision int          `json:"precision,omitempty"`
	Unsigned  bool         `json:"unsigned,omitempty"`
	Kind      SemanticKind `json:"kind"`
}

var typePattern = regexp.MustCompile(`^([a-z][a-z0-9_]*(?:\s+[a-z][a-z0-9_]*)*)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?\s*([a-z\s]*)$`)

// synonyms maps dialect spellings onto one canonical base type name.
var synonyms = map[string]string{
	"character varying":           "varchar",
	"character":                   "char",
	"integer":                     "int",
	"boolean":                     "bool",
	"double precision":            "double",
	"numeric":                     "decimal",
	"real":                        "float",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamptz",
	"time without time zone":      "time",
}

type kindRule struct {
	kind  SemanticKind
	match func(string) bool
}

func oneOf(names ...string) func(string) bool {
	return func(t string) bool {
		for _, n := range names {
			if t == n {
				return true
			}
		}
		return false
	}
}

// kindRules is evaluated in order; the first match wins.
var kindRules = []kindRule{
	{KindString, oneOf("char", "varchar", "text", "blob", "binary", "varbinary", "json", "jsonb", "uuid", "bytea")},
	{KindString, func(t string) bool { return strings.HasSuffix(t, "text") || strings.HasSuffix(t, "blob") }},
	{KindPoint, oneOf("point")},
	{KindInteger, func(t string) bool { return strings.Contains(t, "int") }},
	{KindBoolean, oneOf("bool")},
	{KindDouble, oneOf("double", "decimal")},
	{KindFloat, oneOf("float")},
	{KindDateTime, oneOf("datetime", "date", "time")},
	{KindDateTime, func(t string) bool { return strings.HasPrefix(t, "timestamp") }},
}

// ParseTypeInfo converts a raw catalog type string such as "varchar(255)",
// "decimal(10,2)" or "int(10) unsigned" into its canonical TypeInfo.
func ParseTypeInfo(raw string) (TypeInfo, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	info := TypeInfo{Raw: raw}

	m := typePattern.FindStringSubmatch(normalized)
	if m == nil {
		return info, fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}

	var words []string
	for _, w := range strings.Fields(m[1] + " " + m[4]) {
		switch w {
		case "unsigned":
			info.Unsigned = true
		case "signed", "zerofill":
		default:
			words = append(words, w)
		}
	}
	base := strings.Join(words, " ")
	if canonical, ok := synonyms[base]; ok {
		base = canonical
	}
	info.Type = base

	var err error
	if m[2] != "" {
		if info.Length, err = strconv.Atoi(m[2]); err != nil {
			return info, fmt.Errorf("%w: %q: bad length", ErrUnknownType, raw)
		}
	}
	if m[3] != "" {
		if info.Precision, err = strconv.Atoi(m[3]); err != nil {
			return info, fmt.Errorf("%w: %q: bad precision", ErrUnknownType, raw)
		}
	}

	// tinyint(1) is the single-bit flag convention.
	if info.Type == "tinyint" && info.Length == 1 {
		info.Type = "bool"
		info.Length = 0
		info.Kind = KindBoolean
		return info, nil
	}

	for _, rule := range kindRules {
		if rule.match(info.Type) {
			info.Kind = rule.kind
			return info, nil
		}
	}
	return info, fmt.Errorf("%w: %q", ErrUnknownType, raw)
}

// String renders the canonical type back into SQL type syntax.
func (t TypeInfo) String() string {
	return formatType(t.Type, t.Length, t.Precision, t.Unsigned)
}

func formatType(base string, length, precision int, unsigned bool) string {
	var b strings.Builder
	b.WriteString(base)
	if length > 0 {
		b.WriteString("(")
		b.WriteString(strconv.Itoa(length))
		if precision > 0 {
			b.WriteString(",")
			b.WriteString(strconv.Itoa(precision))
		}
		b.WriteString(")")
	}
	if unsigned {
		b.WriteString(" unsigned")
	}
	return b.String()
}
