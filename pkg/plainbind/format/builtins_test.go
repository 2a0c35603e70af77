package format

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/sambeau/plainbind/pkg/plainbind/logger"
)

func newTestRegistry() *Registry {
	return NewRegistry(
		WithLogger(logger.NullLogger()),
		WithLocation(time.UTC),
		WithLocale(language.AmericanEnglish),
	)
}

func TestBuiltins(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		name  string
		spec  string
		input any
		want  any
	}{
		// number
		{"number grouping", "number", float64(1234567), "1,234,567"},
		{"number fraction", "number", 1234.5, "1,234.5"},
		{"number from string", "number", " 42 ", "42"},
		{"number empty string", "number", "", "0"},
		{"number non-numeric", "number", "abc", "abc"},

		// currency
		{"currency", "currency", float64(1500), "¥1,500"},
		{"currency non-numeric", "currency", "n/a", "n/a"},

		// percent
		{"percent", "percent", 0.25, "25%"},

		// date and datetime
		{"date iso", "date", "2024-03-05T10:07:00Z", "2024/03/05"},
		{"date epoch zero", "date", float64(0), "1970/01/01"},
		{"date epoch ms", "date", float64(1709633220000), "2024/03/05"},
		{"date invalid", "date", "not a date", "not a date"},
		{"date empty passes", "date", "", ""},
		{"date false passes", "date", false, false},
		{"datetime", "datetime", "2024-03-05T09:07:00Z", "2024/03/05 09:07"},
		{"datetime time value", "datetime", time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC), "2023/12/31 23:59"},

		// string transforms
		{"uppercase", "uppercase", "abc", "ABC"},
		{"uppercase number", "uppercase", float64(5), "5"},
		{"uppercase nil", "uppercase", nil, nil},
		{"lowercase", "lowercase", "ABC", "abc"},
		{"trim", "trim", "  x  ", "x"},
		{"trim bool", "trim", true, "true"},

		// truncate
		{"truncate cuts", "truncate:5", "hello world", "hello..."},
		{"truncate short", "truncate:5", "hi", "hi"},
		{"truncate exact", "truncate:5", "hello", "hello"},
		{"truncate default", "truncate", strings.Repeat("a", 100), strings.Repeat("a", 100)},
		{"truncate default long", "truncate", strings.Repeat("a", 101), strings.Repeat("a", 100) + "..."},
		{"truncate bad arg", "truncate:x", "hello", "hello"},
		{"truncate runes", "truncate:2", "日本語", "日本..."},
		{"truncate number", "truncate:1", float64(123), "1..."},
		{"truncate nil", "truncate:1", nil, nil},

		// json
		{"json object", "json", map[string]any{"a": float64(1), "b": "<x>"}, `{"a":1,"b":"<x>"}`},
		{"json string", "json", "hi", `"hi"`},
		{"json array", "json", []any{float64(1), nil}, `[1,null]`},
		{"json unsupported", "json", make(chan int), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Apply(tt.spec, tt.input, nil)
			if tt.name == "json unsupported" {
				if _, ok := got.(chan int); !ok {
					t.Errorf("expected the channel to pass through, got %#v", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Apply(%q, %#v) = %#v, want %#v", tt.spec, tt.input, got, tt.want)
			}
		})
	}
}

func TestDate_UsesRegistryLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	r := NewRegistry(WithLogger(logger.NullLogger()), WithLocation(tokyo))

	if got := r.Apply("datetime", "2024-03-05T20:30:00Z", nil); got != "2024/03/06 05:30" {
		t.Errorf("datetime in JST = %#v", got)
	}
}

func TestDate_BareDateIsUTC(t *testing.T) {
	newYork := time.FixedZone("EST", -5*60*60)
	west := NewRegistry(WithLogger(logger.NullLogger()), WithLocation(newYork))
	if got := west.Apply("date", "2024-01-15", nil); got != "2024/01/14" {
		t.Errorf("bare date west of UTC = %#v, want 2024/01/14", got)
	}
	if got := west.Apply("date", "2024-01-15 10:00", nil); got != "2024/01/15" {
		t.Errorf("local date-time west of UTC = %#v, want 2024/01/15", got)
	}

	tokyo := time.FixedZone("JST", 9*60*60)
	east := NewRegistry(WithLogger(logger.NullLogger()), WithLocation(tokyo))
	if got := east.Apply("datetime", "2024-01-15", nil); got != "2024/01/15 09:00" {
		t.Errorf("bare date east of UTC = %#v, want 2024/01/15 09:00", got)
	}
}

func TestNumber_Locale(t *testing.T) {
	r := NewRegistry(WithLogger(logger.NullLogger()), WithLocale(language.German))
	if got := r.Apply("number", float64(1234567), nil); got != "1.234.567" {
		t.Errorf("German number = %#v", got)
	}
}

func TestLongDate(t *testing.T) {
	r := newTestRegistry()
	tests := []struct {
		spec string
		want string
	}{
		{"longdate", "March 5, 2024"},
		{"longdate:en_GB", "5 March 2024"},
		{"longdate:de", "5. März 2024"},
		{"longdate:ja-JP", "2024年3月5日"},
		{"longdate:xx", "March 5, 2024"},
	}
	for _, tt := range tests {
		if got := r.Apply(tt.spec, "2024-03-05", nil); got != tt.want {
			t.Errorf("Apply(%q) = %#v, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestMarkdown(t *testing.T) {
	r := newTestRegistry()

	got, ok := r.Apply("markdown", "# Title\n\nSome *emphasis*.", nil).(string)
	if !ok {
		t.Fatal("markdown should return a string")
	}
	if !strings.Contains(got, "<h1>Title</h1>") || !strings.Contains(got, "<em>emphasis</em>") {
		t.Errorf("unexpected markdown output: %q", got)
	}

	if got := r.Apply("markdown", nil, nil); got != nil {
		t.Errorf("markdown(nil) = %#v", got)
	}
}

func TestSliceEnd(t *testing.T) {
	tests := []struct {
		end    float64
		length int
		want   int
	}{
		{5, 10, 5},
		{5.9, 10, 5},
		{-3, 10, 7},
		{-30, 10, 0},
		{20, 10, 10},
	}
	for _, tt := range tests {
		if got := sliceEnd(tt.end, tt.length); got != tt.want {
			t.Errorf("sliceEnd(%v, %d) = %d, want %d", tt.end, tt.length, got, tt.want)
		}
	}
}
