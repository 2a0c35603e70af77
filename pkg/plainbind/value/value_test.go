package value

import (
	"math"
	"testing"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"nil", nil, false},
		{"undefined", Undefined, false},
		{"false", false, false},
		{"true", true, true},
		{"empty string", "", false},
		{"string", "x", true},
		{"string zero", "0", true},
		{"zero", float64(0), false},
		{"int zero", 0, false},
		{"NaN", math.NaN(), false},
		{"number", 3.5, true},
		{"empty array", []any{}, false},
		{"array", []any{1}, true},
		{"empty object", map[string]any{}, true},
		{"typed slice", []string{"a"}, true},
		{"empty typed slice", []int{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truthy(tt.in); got != tt.want {
				t.Errorf("Truthy(%#v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	for _, v := range []any{nil, Undefined, ""} {
		if !IsEmpty(v) {
			t.Errorf("IsEmpty(%#v) = false", v)
		}
	}
	for _, v := range []any{0, false, []any{}, " "} {
		if IsEmpty(v) {
			t.Errorf("IsEmpty(%#v) = true", v)
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{Undefined, "undefined"},
		{"abc", "abc"},
		{true, "true"},
		{float64(42), "42"},
		{1.5, "1.5"},
		{-0.25, "-0.25"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{3, "3"},
		{[]any{1.0, "a", nil, true}, "1,a,,true"},
		{map[string]any{"a": 1}, "[object Object]"},
	}

	for _, tt := range tests {
		if got := String(tt.in); got != tt.want {
			t.Errorf("String(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{nil, 0, true},
		{"", 0, true},
		{"  12.5 ", 12.5, true},
		{"1e3", 1000, true},
		{"0x10", 16, true},
		{"12px", 0, false},
		{"inf", 0, false},
		{"Infinity", math.Inf(1), true},
		{true, 1, true},
		{false, 0, true},
		{[]any{}, 0, true},
		{[]any{"7"}, 7, true},
		{[]any{1.0, 2.0}, 0, false},
		{map[string]any{}, 0, false},
		{Undefined, 0, false},
		{float64(3), 3, true},
	}

	for _, tt := range tests {
		got, ok := Number(tt.in)
		if ok != tt.wantOK {
			t.Errorf("Number(%#v) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Number(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIndex(t *testing.T) {
	data := map[string]any{
		"items": []any{"a", "b"},
		"name":  "héllo",
		"null":  nil,
	}

	if got := Index(data, "items"); !IsArray(got) {
		t.Errorf("Index(items) = %#v", got)
	}
	if got := Index(data["items"], "1"); got != "b" {
		t.Errorf("Index(items, 1) = %#v", got)
	}
	if got := Index(data["items"], "length"); got != 2 {
		t.Errorf("Index(items, length) = %#v", got)
	}
	if got := Index(data["items"], "01"); !IsUndefined(got) {
		t.Errorf("Index(items, 01) = %#v, want Undefined", got)
	}
	if got := Index(data["items"], "5"); !IsUndefined(got) {
		t.Errorf("Index(items, 5) = %#v, want Undefined", got)
	}
	if got := Index(data["name"], "1"); got != "é" {
		t.Errorf("Index(name, 1) = %#v", got)
	}
	if got := Index(data, "null"); got != nil {
		t.Errorf("Index(null) = %#v, want nil", got)
	}
	if got := Index(data, "missing"); !IsUndefined(got) {
		t.Errorf("Index(missing) = %#v", got)
	}
	if got := Index(42.0, "x"); !IsUndefined(got) {
		t.Errorf("Index(number) = %#v", got)
	}

	typed := map[string][]int{"nums": {4, 5}}
	if got := Index(Index(typed, "nums"), "1"); got != 5 {
		t.Errorf("typed index = %#v", got)
	}
}
