package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Renderer writes command results as aligned tables, JSON or YAML.
// Tables come from text/template views executed through a tabwriter.
type Renderer struct {
	out       io.Writer
	format    string
	printer   *message.Printer
	caser     cases.Caser
	currency  string
	templates *template.Template
}

// NewRenderer creates a renderer for format with numbers grouped per locale
func NewRenderer(out io.Writer, format, locale, currency string) (*Renderer, error) {
	switch format {
	case "", FormatTable:
		format = FormatTable
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q (table, json, yaml)", format)
	}

	tag := language.English
	if locale != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
		}
		tag = parsed
	}

	r := &Renderer{
		out:      out,
		format:   format,
		printer:  message.NewPrinter(tag),
		caser:    cases.Title(tag),
		currency: currency,
	}

	tmpl, err := template.New("views").Funcs(r.funcMap()).Parse(views)
	if err != nil {
		return nil, fmt.Errorf("parsing views: %w", err)
	}
	r.templates = tmpl
	return r, nil
}

// Format returns the output format
func (r *Renderer) Format() string {
	return r.format
}

// Render writes data with the named view, or encodes it for json/yaml
func (r *Renderer) Render(view string, data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	if err := r.templates.ExecuteTemplate(tw, view, data); err != nil {
		return fmt.Errorf("rendering %s: %w", view, err)
	}
	return tw.Flush()
}

// Message prints a status line. It is a no-op for json and yaml so their
// output stays machine-readable.
func (r *Renderer) Message(format string, args ...any) {
	if r.format != FormatTable {
		return
	}
	r.printer.Fprintf(r.out, format+"\n", args...)
}

func (r *Renderer) funcMap() template.FuncMap {
	return template.FuncMap{
		"money":    r.formatMoney,
		"number":   r.formatNumber,
		"date":     formatDate,
		"datetime": formatDateTime,
		"title":    r.caser.String,
		"truncate": truncate,
		"join":     strings.Join,
		"default":  defaultString,
		"add":      func(a, b int) int { return a + b },
		"yesno": func(b bool) string {
			if b {
				return "yes"
			}
			return "no"
		},
	}
}

// formatMoney prints the currency symbol and the amount grouped per locale
// with two decimals, e.g. ₹12,34,567.50 for en-IN
func (r *Renderer) formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	d = d.Round(2)
	fixed := d.StringFixed(2)
	frac := fixed[len(fixed)-2:]
	return sign + r.currency + r.printer.Sprintf("%d", d.IntPart()) + "." + frac
}

func (r *Renderer) formatNumber(n int) string {
	return r.printer.Sprintf("%d", n)
}

// formatDate formats a time value as date string, e.g. "2026-01-15"
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// formatDateTime formats a time value as "2026-01-15 14:30"
func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

// truncate shortens s to max runes with an ellipsis
func truncate(max int, s string) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func defaultString(fallback, s string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
