package format

import (
	"math"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goodsign/monday"

	"github.com/sambeau/plainbind/pkg/plainbind/value"
)

const (
	dateLayout     = "2006/01/02"
	dateTimeLayout = "2006/01/02 15:04"

	// maxEpochMillis is the largest timestamp a browser Date accepts.
	maxEpochMillis = 8.64e15
)

func (r *Registry) formatDate(v any, _ map[string]any, _ string) (any, error) {
	t, ok := r.toTime(v)
	if !ok {
		return v, nil
	}
	return t.Format(dateLayout), nil
}

func (r *Registry) formatDateTime(v any, _ map[string]any, _ string) (any, error) {
	t, ok := r.toTime(v)
	if !ok {
		return v, nil
	}
	return t.Format(dateTimeLayout), nil
}

// formatLongDate prints a localized long date; the argument picks the locale
// ("de", "fr_fr", "ja_jp"), defaulting to US English.
func (r *Registry) formatLongDate(v any, _ map[string]any, arg string) (any, error) {
	t, ok := r.toTime(v)
	if !ok {
		return v, nil
	}
	locale := mondayLocale(arg)
	return monday.Format(t, longDateLayout(locale), locale), nil
}

// toTime converts a value to a time in the registry's location. Falsy
// values other than the number zero are not dates. A bare YYYY-MM-DD string
// is midnight UTC, as it is in browsers, so west of UTC it shows the day
// before.
func (r *Registry) toTime(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t.In(r.location), true
	}
	if !value.Truthy(v) && !isZeroNumber(v) {
		return time.Time{}, false
	}

	switch x := v.(type) {
	case string:
		if t, err := time.Parse(time.DateOnly, x); err == nil {
			return t.In(r.location), true
		}
		t, err := dateparse.ParseIn(x, r.location)
		if err != nil {
			return time.Time{}, false
		}
		return t.In(r.location), true
	case map[string]any, []any:
		t, err := dateparse.ParseIn(value.String(x), r.location)
		if err != nil {
			return time.Time{}, false
		}
		return t.In(r.location), true
	}

	ms, ok := value.Number(v)
	if !ok || math.IsInf(ms, 0) || math.Abs(ms) > maxEpochMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).In(r.location), true
}

func isZeroNumber(v any) bool {
	if _, isString := v.(string); isString {
		return false
	}
	if _, isBool := v.(bool); isBool {
		return false
	}
	if value.IsNil(v) || value.IsArray(v) {
		return false
	}
	n, ok := value.Number(v)
	return ok && n == 0
}
