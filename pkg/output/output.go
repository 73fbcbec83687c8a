package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Format selects how command results are printed.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts table, json or yaml. An empty string means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgWhite, color.Bold)
)

// SetOutput redirects normal and error output. Nil leaves a stream unchanged.
func SetOutput(out, errOut io.Writer) {
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

func Success(format string, a ...interface{}) {
	successColor.Fprintf(stdout, "✓ "+format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	errorColor.Fprintf(stderr, "✗ "+format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	infoColor.Fprintf(stdout, format+"\n", a...)
}

func Warn(format string, a ...interface{}) {
	warnColor.Fprintf(stderr, "⚠ "+format+"\n", a...)
}

// Field prints an aligned "label: value" line.
func Field(label string, value interface{}) {
	fmt.Fprintf(stdout, "%-14s %v\n", label+":", value)
}

func JSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func YAML(v interface{}) error {
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Print writes v as JSON or YAML, or calls table for the table format.
func Print(format Format, v interface{}, table func()) error {
	switch format {
	case FormatJSON:
		return JSON(v)
	case FormatYAML:
		return YAML(v)
	default:
		table()
		return nil
	}
}

// Raw writes bytes unchanged, for binary downloads piped to a file.
func Raw(data []byte) error {
	_, err := stdout.Write(data)
	return err
}

type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		rows:    [][]string{},
	}
}

func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

func (t *Table) Render() {
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = utf8.RuneCountInString(header)
	}

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && utf8.RuneCountInString(cell) > widths[i] {
				widths[i] = utf8.RuneCountInString(cell)
			}
		}
	}

	for i, header := range t.headers {
		headerColor.Fprintf(stdout, "%-*s  ", widths[i], header)
	}
	fmt.Fprintln(stdout)

	for i := range t.headers {
		fmt.Fprint(stdout, strings.Repeat("-", widths[i])+"  ")
	}
	fmt.Fprintln(stdout)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			fmt.Fprintf(stdout, "%-*s  ", widths[i], cell)
		}
		fmt.Fprintln(stdout)
	}
}
