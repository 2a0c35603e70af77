package plainbind

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	pberrors "github.com/sambeau/plainbind/pkg/plainbind/errors"
)

const page = `<!DOCTYPE html>
<html><head><title>t</title></head>
<body><h1 data-bind="title" data-format="shout"></h1><p data-bind="missing" data-placeholder="N/A"></p></body></html>`

func TestRenderString(t *testing.T) {
	b := New(WithLogger(NullLogger()))
	if err := b.RegisterFormatter("shout", func(v any, _ map[string]any, _ string) (any, error) {
		return strings.ToUpper(v.(string)) + "!", nil
	}); err != nil {
		t.Fatal(err)
	}

	out, err := b.RenderString(context.Background(), page, map[string]any{"title": "hello"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`<h1 data-bind="title" data-format="shout">HELLO!</h1>`,
		`<p data-bind="missing" data-placeholder="N/A">N/A</p>`,
		`<!DOCTYPE html>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderString_InlineDataWins(t *testing.T) {
	src := `<html><head><script id="plainbind-data" type="application/json">{"who":"inline"}</script></head>` +
		`<body><b data-bind="who"></b></body></html>`

	out, err := New(WithLogger(NullLogger())).RenderString(context.Background(), src, map[string]any{"who": "caller"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<b data-bind="who">inline</b>`) {
		t.Errorf("inline data should win:\n%s", out)
	}
}

func TestRenderString_BrokenInlineData(t *testing.T) {
	buf := NewBufferedLogger()
	src := `<html><head><script id="plainbind-data" type="application/json">{nope</script></head>` +
		`<body><b data-bind="who" data-placeholder="?"></b></body></html>`

	out, err := New(WithLogger(buf)).RenderString(context.Background(), src, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<b data-bind="who" data-placeholder="?">?</b>`) {
		t.Errorf("render should fall back to placeholders:\n%s", out)
	}
	if !buf.Contains("inline JSON") {
		t.Errorf("parse failure not logged: %q", buf.String())
	}
}

func TestRegisterFormatter_Invalid(t *testing.T) {
	b := New(WithLogger(NullLogger()))
	if err := b.RegisterFormatter("", nil); !errors.Is(err, pberrors.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestOptions(t *testing.T) {
	b := New(
		WithLogger(NullLogger()),
		WithLocation(time.UTC),
		WithScriptID("page-data"),
	)
	src := `<html><head><script id="page-data" type="application/json">{"d":"2024-01-02T03:04:00Z"}</script></head>` +
		`<body><i data-bind="d" data-format="datetime"></i></body></html>`

	out, err := b.RenderString(context.Background(), src, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, ">2024/01/02 03:04<") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestBind_ReadyContext(t *testing.T) {
	b := New(WithLogger(NullLogger()))
	var sb strings.Builder
	c, err := b.Render(context.Background(), strings.NewReader(page), &sb, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Version != Version || c.Root == nil || c.Data == nil {
		t.Errorf("context = %+v", c)
	}
}
