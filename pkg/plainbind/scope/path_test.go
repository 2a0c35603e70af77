package scope

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		expr string
		want Path
	}{
		{"", nil},
		{"   ", nil},
		{"name", Path{"name"}},
		{" user.name ", Path{"user", "name"}},
		{"items[0].name", Path{"items", "0", "name"}},
		{"grid[1][2]", Path{"grid", "1", "2"}},
		{"a..b", Path{"a", "b"}},
		{".a.", Path{"a"}},
		{"...", nil},
		{"items[x]", Path{"items[x]"}},
	}

	for _, tt := range tests {
		got := ParsePath(tt.expr)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParsePath(%q) = %#v, want %#v", tt.expr, got, tt.want)
		}
	}
}

func testData() map[string]any {
	return map[string]any{
		"title": "Hello",
		"count": float64(0),
		"user": map[string]any{
			"name": "Ada",
			"tags": []any{"x", "y"},
			"nick": nil,
		},
		"items": []any{
			map[string]any{"name": "first"},
			map[string]any{"name": "second"},
		},
	}
}

func TestResolve(t *testing.T) {
	s := New(testData())

	tests := []struct {
		expr string
		want any
	}{
		{"title", "Hello"},
		{"count", float64(0)},
		{"user.name", "Ada"},
		{"user.tags[1]", "y"},
		{"user.tags.length", 2},
		{"user.nick", ""},
		{"user.nick.first", ""},
		{"missing", ""},
		{"missing.deep.path", ""},
		{"title.nope", ""},
		{"", ""},
		{"  ", ""},
	}

	for _, tt := range tests {
		got := Resolve(tt.expr, s)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Resolve(%q) = %#v, want %#v", tt.expr, got, tt.want)
		}
	}
}

func TestResolve_BracketEquivalence(t *testing.T) {
	s := New(testData())
	a := Resolve("items[0].name", s)
	b := Resolve("items.0.name", s)
	if a != "first" || a != b {
		t.Errorf("items[0].name = %#v, items.0.name = %#v", a, b)
	}
}

func TestResolve_InnermostWins(t *testing.T) {
	root := New(map[string]any{"x": "root", "y": "outer"})
	child := root.Fork("x", "child", 0)
	grandchild := child.Fork("x", "grandchild", 3)

	if got := Resolve("x", grandchild); got != "grandchild" {
		t.Errorf("Resolve(x) = %#v, want grandchild", got)
	}
	if got := Resolve("x", child); got != "child" {
		t.Errorf("Resolve(x) in child = %#v", got)
	}
	if got := Resolve("y", grandchild); got != "outer" {
		t.Errorf("outer variables should stay visible, got %#v", got)
	}
	if got := Resolve(IndexVar, grandchild); got != 3 {
		t.Errorf("$index = %#v, want 3", got)
	}
	if grandchild.Depth() != 2 {
		t.Errorf("Depth() = %d, want 2", grandchild.Depth())
	}
}

func TestFork_DoesNotMutateParent(t *testing.T) {
	data := map[string]any{"a": 1}
	root := New(data)
	root.Fork("item", "x", 0)

	if _, ok := data["item"]; ok {
		t.Error("Fork leaked the loop variable into the data object")
	}
	if _, ok := data[IndexVar]; ok {
		t.Error("Fork leaked $index into the data object")
	}
}

func TestResolve_RootFallback(t *testing.T) {
	root := New(map[string]any{"site": "example"})
	detached := &Scope{vars: map[string]any{}, root: root.Root()}
	if got := Resolve("site", detached); got != "example" {
		t.Errorf("Resolve(site) = %#v, want example", got)
	}
}

func TestResolve_NilScope(t *testing.T) {
	if got := Resolve("a", nil); got != "" {
		t.Errorf("Resolve with nil scope = %#v", got)
	}
	if got := Resolve("a", New(nil)); got != "" {
		t.Errorf("Resolve with nil data = %#v", got)
	}
}

func TestResolve_NeverPanics(t *testing.T) {
	s := New(testData()).Fork("item", map[string]any{"n": []any{1.0, nil}}, 1)

	rapid.Check(t, func(t *rapid.T) {
		expr := rapid.OneOf(
			rapid.String(),
			rapid.StringMatching(`[a-z$.\[\]0-9 ]{0,20}`),
		).Draw(t, "expr")

		got := Resolve(expr, s)
		if got == nil {
			t.Fatalf("Resolve(%q) returned nil", expr)
		}
	})
}
