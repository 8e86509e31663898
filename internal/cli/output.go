package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table provides aligned column output for status and kinds listings.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow adds a row. Missing cells are blank; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	for i, cell := range row {
		if w := lipgloss.Width(cell); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// String renders the table.
func (t *Table) String() string {
	if len(t.headers) == 0 {
		return ""
	}

	var b strings.Builder
	t.writeRow(&b, t.headers, Header)

	sep := make([]string, len(t.widths))
	for i, w := range t.widths {
		sep[i] = strings.Repeat("-", w)
	}
	t.writeRow(&b, sep, Dim)

	for _, row := range t.rows {
		t.writeRow(&b, row, nil)
	}
	return b.String()
}

func (t *Table) writeRow(b *strings.Builder, cells []string, style func(string) string) {
	var line strings.Builder
	for i, cell := range cells {
		if i > 0 {
			line.WriteString("  ")
		}
		padded := padRight(cell, t.widths[i])
		if style != nil {
			padded = style(padded)
		}
		line.WriteString(padded)
	}
	b.WriteString(strings.TrimRight(line.String(), " "))
	b.WriteString("\n")
}

// padRight pads s with spaces to the given display width.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// ListStyle determines how a list item is rendered.
type ListStyle int

const (
	ListStyleNormal ListStyle = iota
	ListStyleSuccess
	ListStyleError
	ListStyleWarning
)

type listItem struct {
	content string
	style   ListStyle
}

// List renders one marked line per item.
type List struct {
	items  []listItem
	indent int
}

// NewList creates a new list.
func NewList() *List {
	return &List{indent: 2}
}

// Add adds a plain item.
func (l *List) Add(content string) { l.add(content, ListStyleNormal) }

// AddSuccess adds a success item.
func (l *List) AddSuccess(content string) { l.add(content, ListStyleSuccess) }

// AddError adds an error item.
func (l *List) AddError(content string) { l.add(content, ListStyleError) }

// AddWarning adds a warning item.
func (l *List) AddWarning(content string) { l.add(content, ListStyleWarning) }

func (l *List) add(content string, style ListStyle) {
	l.items = append(l.items, listItem{content: content, style: style})
}

// String renders the list.
func (l *List) String() string {
	var b strings.Builder
	indent := strings.Repeat(" ", l.indent)

	for _, item := range l.items {
		b.WriteString(indent)
		switch item.style {
		case ListStyleSuccess:
			b.WriteString(Success("✓"))
		case ListStyleError:
			b.WriteString(Error("✗"))
		case ListStyleWarning:
			b.WriteString(Warning("!"))
		default:
			b.WriteString("•")
		}
		b.WriteString(" ")
		b.WriteString(item.content)
		b.WriteString("\n")
	}

	return b.String()
}

// Section renders a header line followed by content.
func Section(title, content string) string {
	return Header(title) + "\n" + content
}

// FormatKeyValue formats a key-value pair.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("%s: %s", Dim(key), value)
}

// FormatCount formats a count with singular/plural form.
func FormatCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
