package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeInfo(t *testing.T) {
	tests := []struct {
		raw       string
		wantType  string
		wantKind  SemanticKind
		length    int
		precision int
		unsigned  bool
	}{
		{"tinyint(1)", "bool", KindBoolean, 0, 0, false},
		{"varchar(255)", "varchar", KindString, 255, 0, false},
		{"decimal(10,2)", "decimal", KindDouble, 10, 2, false},
		{"VARCHAR(64)", "varchar", KindString, 64, 0, false},
		{"character varying(32)", "varchar", KindString, 32, 0, false},
		{"character varying", "varchar", KindString, 0, 0, false},
		{"int(10) unsigned", "int", KindInteger, 10, 0, true},
		{"bigint unsigned", "bigint", KindInteger, 0, 0, true},
		{"INTEGER", "int", KindInteger, 0, 0, false},
		{"smallint", "smallint", KindInteger, 0, 0, false},
		{"tinyint(4)", "tinyint", KindInteger, 4, 0, false},
		{"boolean", "bool", KindBoolean, 0, 0, false},
		{"double", "double", KindDouble, 0, 0, false},
		{"double precision", "double", KindDouble, 0, 0, false},
		{"float", "float", KindFloat, 0, 0, false},
		{"point", "point", KindPoint, 0, 0, false},
		{"text", "text", KindString, 0, 0, false},
		{"longtext", "longtext", KindString, 0, 0, false},
		{"blob", "blob", KindString, 0, 0, false},
		{"binary(16)", "binary", KindString, 16, 0, false},
		{"datetime", "datetime", KindDateTime, 0, 0, false},
		{"date", "date", KindDateTime, 0, 0, false},
		{"time", "time", KindDateTime, 0, 0, false},
		{"timestamp", "timestamp", KindDateTime, 0, 0, false},
		{"timestamp(6) without time zone", "timestamp", KindDateTime, 6, 0, false},
		{"timestamp with time zone", "timestamptz", KindDateTime, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			info, err := ParseTypeInfo(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, info.Raw)
			assert.Equal(t, tt.wantType, info.Type)
			assert.Equal(t, tt.wantKind, info.Kind)
			assert.Equal(t, tt.length, info.Length)
			assert.Equal(t, tt.precision, info.Precision)
			assert.Equal(t, tt.unsigned, info.Unsigned)
		})
	}
}

func TestParseTypeInfoUnknown(t *testing.T) {
	for _, raw := range []string{"frobnicate", "", "enum('a','b')", "varchar(abc)", "varchar(99999999999999999999)", "decimal(10,99999999999999999999)"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseTypeInfo(raw)
			assert.ErrorIs(t, err, ErrUnknownType)
		})
	}
}

func TestTypeInfoRoundTrip(t *testing.T) {
	for _, raw := range []string{"tinyint(1)", "varchar(255)", "decimal(10,2)", "int(10) unsigned", "timestamp", "point", "float", "character varying(12)"} {
		t.Run(raw, func(t *testing.T) {
			first, err := ParseTypeInfo(raw)
			require.NoError(t, err)

			s, err := Build(Definition{Table: "t", Columns: []ColumnDef{{Name: "c", Type: raw}}})
			require.NoError(t, err)
			col, ok := s.Column("c")
			require.True(t, ok)

			second, err := ParseTypeInfo(col.TypeString())
			require.NoError(t, err)
			assert.Equal(t, first.Kind, second.Kind)
			assert.Equal(t, first.String(), second.String())
		})
	}
}
