package tableparser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/koba/dbsync/internal/schema"
)

// castPattern matches a trailing PostgreSQL cast such as
// ::character varying or ::numeric(10,2).
var castPattern = regexp.MustCompile(`(?i)::[a-z_][a-z0-9_ ]*(\(\d+(\s*,\s*\d+)?\))?(\[\])?$`)

var keywordDefaults = map[string]bool{
	"current_timestamp": true,
	"current_date":      true,
	"current_time":      true,
	"localtimestamp":    true,
	"localtime":         true,
}

// ParseDefault interprets a catalog default string for a column of the
// given kind. Sequence defaults of auto-increment columns are not
// defaults of the declared model.
func ParseDefault(raw *string, kind schema.SemanticKind, autoIncrement bool) schema.Default {
	if raw == nil {
		return schema.Default{}
	}
	s := strings.TrimSpace(*raw)
	lower := strings.ToLower(s)
	if s == "" || lower == "null" || strings.HasPrefix(lower, "nextval(") {
		return schema.Default{}
	}
	if autoIncrement && strings.Contains(lower, "nextval") {
		return schema.Default{}
	}

	for {
		stripped := castPattern.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = strings.TrimSpace(stripped)
	}
	if strings.EqualFold(s, "null") {
		return schema.Default{}
	}

	if quoted(s) {
		text := strings.ReplaceAll(s[1:len(s)-1], "''", "'")
		if v, ok := scalar(text, kind); ok {
			return schema.Literal(v)
		}
		return schema.Literal(text)
	}

	if keywordDefaults[strings.ToLower(s)] || strings.Contains(s, "(") {
		return schema.Raw(s)
	}
	if v, ok := scalar(s, kind); ok {
		return schema.Literal(v)
	}
	if kind == schema.KindString {
		return schema.Literal(s)
	}
	return schema.Raw(s)
}

func quoted(s string) bool {
	return len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\''
}

// dateLayouts are the literal forms catalogs report for date and time
// defaults.
var dateLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
	"15:04:05.999999999",
}

// scalar converts text to the Go value matching kind. Date and time
// values stay text.
func scalar(text string, kind schema.SemanticKind) (any, bool) {
	switch kind {
	case schema.KindInteger:
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			return v, true
		}
	case schema.KindBoolean:
		switch strings.ToLower(text) {
		case "1", "true", "t", "yes", "on", "b'1'":
			return true, true
		case "0", "false", "f", "no", "off", "b'0'":
			return false, true
		}
	case schema.KindDouble, schema.KindFloat:
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return v, true
		}
	case schema.KindDateTime:
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, text); err == nil {
				return text, true
			}
		}
	}
	return nil, false
}
