package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/koba/dbsync/internal/schema"
)

// Printer writes column differences in a human-readable format
type Printer struct {
	out     io.Writer
	added   *color.Color
	dropped *color.Color
	changed *color.Color
	header  *color.Color
}

// NewPrinter creates a printer writing to out. Colors are emitted only
// when colored is true.
func NewPrinter(out io.Writer, colored bool) *Printer {
	p := &Printer{
		out:     out,
		added:   color.New(color.FgGreen),
		dropped: color.New(color.FgRed),
		changed: color.New(color.FgYellow),
		header:  color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.added, p.dropped, p.changed, p.header} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// PrintTable prints the differences of an existing table.
// beforeName and afterName label the two sides, e.g. a data source and a
// schema file.
func (p *Printer) PrintTable(table, beforeName, afterName string, diffs []ColumnDiff) {
	p.header.Fprintf(p.out, "Table: %s\n", table)
	fmt.Fprintf(p.out, "  --- %s\n  +++ %s\n", beforeName, afterName)

	if len(diffs) == 0 {
		fmt.Fprintln(p.out, "  No differences found.")
		fmt.Fprintln(p.out)
		return
	}

	for _, d := range diffs {
		switch d.Flag {
		case Added:
			p.added.Fprintf(p.out, "  + %-20s %s\n", d.Name, ColumnAttrs(d.After))
		case Dropped:
			p.dropped.Fprintf(p.out, "  - %-20s %s\n", d.Name, ColumnAttrs(d.Before))
		case Modified:
			p.changed.Fprintf(p.out, "  M %-20s %s\n", d.Name, ColumnAttrs(d.After))
			fmt.Fprintf(p.out, "    %-20s was %s\n", "", ColumnAttrs(d.Before))
		}
	}
	fmt.Fprintln(p.out)
}

// PrintNewTable prints a declared table that does not exist yet.
func (p *Printer) PrintNewTable(s *schema.Schema, source string) {
	p.added.Fprintf(p.out, "+ table %-20s %s\n", "'"+s.Table()+"'", source)
	for _, d := range Compare(nil, s) {
		fmt.Fprintf(p.out, "  %-20s %s\n", d.Name, ColumnAttrs(d.After))
	}
	fmt.Fprintln(p.out)
}

// ColumnAttrs renders the attributes of a column on one line.
func ColumnAttrs(c *schema.Column) string {
	if c == nil {
		return ""
	}
	parts := []string{c.TypeString()}
	if c.Required {
		parts = append(parts, "NOT NULL")
	}
	if !c.Default.IsZero() {
		parts = append(parts, "DEFAULT "+c.Default.String())
	}
	if c.Primary {
		parts = append(parts, "PRIMARY KEY")
	}
	if c.AutoIncrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if c.Unique {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " ")
}
