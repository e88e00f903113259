package web

import (
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Funcs returns the template helpers shared by all pages.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"money":    Money,
		"date":     func(t time.Time) string { return formatTime(t, "Jan 2, 2006") },
		"datetime": func(t time.Time) string { return formatTime(t, "Jan 2, 2006 15:04") },
		"ago":      Ago,
		"count":    func(n int) string { return humanize.Comma(int64(n)) },
		"percent":  func(d decimal.Decimal) string { return d.StringFixed(1) + "%" },
		"withPage": func(v url.Values, page int) template.URL { return template.URL(WithPage(v, page)) },
		"add":      func(a, b int) int { return a + b },
	}
}

// Money formats d as US dollars with thousands separators, e.g. "$12,345.60".
func Money(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// WithPage returns the encoded query string of values with page replaced.
func WithPage(values url.Values, page int) string {
	out := make(url.Values, len(values)+1)
	for k, v := range values {
		out[k] = v
	}
	out.Set("page", strconv.Itoa(page))
	return out.Encode()
}

// Ago renders t relative to now, e.g. "3 hours ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}
