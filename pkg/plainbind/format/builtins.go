package format

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sambeau/plainbind/pkg/plainbind/value"
)

const (
	defaultTruncateLimit = 100
	ellipsis             = "..."
	yenSign              = "¥"
)

func registerBuiltins(r *Registry) {
	r.MustRegister("number", r.formatNumber)
	r.MustRegister("currency", formatCurrency)
	r.MustRegister("percent", r.formatPercent)
	r.MustRegister("date", r.formatDate)
	r.MustRegister("datetime", r.formatDateTime)
	r.MustRegister("longdate", r.formatLongDate)
	r.MustRegister("uppercase", stringFormatter(strings.ToUpper))
	r.MustRegister("lowercase", stringFormatter(strings.ToLower))
	r.MustRegister("trim", stringFormatter(strings.TrimSpace))
	r.MustRegister("truncate", formatTruncate)
	r.MustRegister("json", formatJSON)
	r.MustRegister("markdown", formatMarkdown)
}

// formatNumber groups digits for the registry locale. Values that are not
// numeric pass through unchanged.
func (r *Registry) formatNumber(v any, _ map[string]any, _ string) (any, error) {
	n, ok := value.Number(v)
	if !ok {
		return v, nil
	}
	return localeNumber(r.locale, n), nil
}

// formatCurrency prints yen with Japanese digit grouping.
func formatCurrency(v any, _ map[string]any, _ string) (any, error) {
	n, ok := value.Number(v)
	if !ok {
		return v, nil
	}
	return yenSign + localeNumber(language.Japanese, n), nil
}

func (r *Registry) formatPercent(v any, _ map[string]any, _ string) (any, error) {
	n, ok := value.Number(v)
	if !ok {
		return v, nil
	}
	p := message.NewPrinter(r.locale)
	return p.Sprintf("%v", number.Percent(n)), nil
}

func localeNumber(tag language.Tag, n float64) string {
	if math.IsInf(n, 0) {
		return value.FormatNumber(n)
	}
	p := message.NewPrinter(tag)
	return p.Sprintf("%v", number.Decimal(n))
}

// stringFormatter coerces the value to a string before applying fn. null
// and undefined pass through.
func stringFormatter(fn func(string) string) Func {
	return func(v any, _ map[string]any, _ string) (any, error) {
		if value.IsNil(v) {
			return v, nil
		}
		return fn(value.String(v)), nil
	}
}

// formatTruncate cuts strings longer than the limit (the argument, default
// 100 characters) and appends an ellipsis.
func formatTruncate(v any, _ map[string]any, arg string) (any, error) {
	if value.IsNil(v) {
		return v, nil
	}
	limit := float64(defaultTruncateLimit)
	if arg != "" {
		if n, ok := value.Number(arg); ok {
			limit = n
		}
	}

	runes := []rune(value.String(v))
	if float64(len(runes)) <= limit {
		return string(runes), nil
	}
	return string(runes[:sliceEnd(limit, len(runes))]) + ellipsis, nil
}

// sliceEnd converts a possibly fractional or negative end index to a rune
// offset the way String.prototype.slice does.
func sliceEnd(end float64, length int) int {
	switch {
	case math.IsInf(end, -1):
		return 0
	case end < 0:
		end = math.Max(float64(length)+math.Ceil(end), 0)
	default:
		end = math.Min(math.Trunc(end), float64(length))
	}
	return int(end)
}

// formatJSON serializes the value. Serialization failures pass the value
// through unchanged.
func formatJSON(v any, _ map[string]any, _ string) (any, error) {
	if value.IsUndefined(v) {
		return v, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return v, nil
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
