// Package value implements the coercion rules PlainBind applies to JSON
// values: truthiness, emptiness, string and number conversion, and
// property indexing.
//
// The rules mirror what a browser does with the same data so that a page
// renders identically whether it is bound server-side or client-side.
package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

type undefinedType struct{}

func (undefinedType) String() string { return "undefined" }

// Undefined marks a path segment that does not exist. It is distinct from
// nil, which is a JSON null.
var Undefined any = undefinedType{}

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v any) bool {
	_, ok := v.(undefinedType)
	return ok
}

// IsNil reports whether v is nil or Undefined.
func IsNil(v any) bool {
	return v == nil || IsUndefined(v)
}

// IsEmpty reports whether v counts as "no value" for placeholders and
// attribute removal: nil, Undefined or the empty string.
func IsEmpty(v any) bool {
	if IsNil(v) {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// IsArray reports whether v is a list value.
func IsArray(v any) bool {
	switch v.(type) {
	case []any:
		return true
	case nil, string, map[string]any:
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// Items returns the elements of a list value, or nil when v is not a list.
func Items(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	if !IsArray(v) {
		return nil
	}
	rv := reflect.ValueOf(v)
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

// Truthy applies the engine's truthiness rule: arrays are truthy iff
// non-empty, everything else follows boolean coercion.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil, undefinedType:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return true
	}
	if f, ok := numeric(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	if IsArray(v) {
		return reflect.ValueOf(v).Len() > 0
	}
	return true
}

// numeric extracts a float64 from Go numeric kinds and json.Number.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	}
	return 0, false
}

// String converts v the way String(v) does in a browser.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case undefinedType:
		return "undefined"
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case map[string]any:
		return "[object Object]"
	}
	if f, ok := numeric(v); ok {
		return FormatNumber(f)
	}
	if IsArray(v) {
		items := Items(v)
		parts := make([]string, len(items))
		for i, item := range items {
			if IsNil(item) {
				continue
			}
			parts[i] = String(item)
		}
		return strings.Join(parts, ",")
	}
	if reflect.ValueOf(v).Kind() == reflect.Map {
		return "[object Object]"
	}
	return fmt.Sprint(v)
}

// FormatNumber renders a float64 using the shortest round-trip form, with
// integers printed without a fractional part.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var (
	decimalRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	radixRe   = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)
)

// Number converts v the way Number(v) does in a browser. The second result
// is false when the conversion yields NaN.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, true
	case undefinedType:
		return math.NaN(), false
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		return parseNumber(x)
	case map[string]any:
		return math.NaN(), false
	}
	if f, ok := numeric(v); ok {
		return f, !math.IsNaN(f)
	}
	if IsArray(v) {
		items := Items(v)
		switch len(items) {
		case 0:
			return 0, true
		case 1:
			if IsNil(items[0]) {
				return 0, true
			}
			return parseNumber(String(items[0]))
		}
	}
	return math.NaN(), false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0, true
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	if radixRe.MatchString(s) {
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return math.NaN(), false
		}
		return float64(n), true
	}
	if !decimalRe.MatchString(s) {
		return math.NaN(), false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN(), false
	}
	return f, true
}

// Index looks up a single property of v. It returns Undefined when v has no
// such property; indexing never panics.
func Index(v any, key string) any {
	switch x := v.(type) {
	case map[string]any:
		if item, ok := x[key]; ok {
			return item
		}
		return Undefined
	case []any:
		if key == "length" {
			return len(x)
		}
		if i, ok := arrayIndex(key); ok && i < len(x) {
			return x[i]
		}
		return Undefined
	case string:
		runes := []rune(x)
		if key == "length" {
			return len(runes)
		}
		if i, ok := arrayIndex(key); ok && i < len(runes) {
			return string(runes[i])
		}
		return Undefined
	case nil, undefinedType:
		return Undefined
	}
	return reflectIndex(v, key)
}

// arrayIndex parses a canonical non-negative decimal index ("0", "12" but
// not "01" or "+1").
func arrayIndex(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return i, true
}

func reflectIndex(v any, key string) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Undefined
		}
		item := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !item.IsValid() {
			return Undefined
		}
		return item.Interface()
	case reflect.Slice, reflect.Array:
		if key == "length" {
			return rv.Len()
		}
		if i, ok := arrayIndex(key); ok && i < rv.Len() {
			return rv.Index(i).Interface()
		}
	}
	return Undefined
}

// Has reports whether the object m owns key.
func Has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}
