package jsonutil

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return v
}

func TestGetNested(t *testing.T) {
	v := decode(t, `{"data":{"page":{"episode":{"watchAction":{"streamId":"vid-123"}}}}}`)

	got := String(v, "", "data", "page", "episode", "watchAction", "streamId")
	if got != "vid-123" {
		t.Errorf("String = %q, want 'vid-123'", got)
	}
}

func TestGetMissingReturnsDefault(t *testing.T) {
	v := decode(t, `{"errorCode":null,"streamInfos":[]}`)

	if got := String(v, "fallback", "errorCode"); got != "fallback" {
		t.Errorf("null field should yield default, got %q", got)
	}
	if got := String(v, "x", "no", "such", "path"); got != "x" {
		t.Errorf("missing path should yield default, got %q", got)
	}
	if got := Int(v, 7, "streamInfos", 3); got != 7 {
		t.Errorf("out-of-range index should yield default, got %d", got)
	}
}

func TestTypedAccessors(t *testing.T) {
	v := decode(t, `{"duration":31200,"is_last_page":true,"videos":[{"id":"a"},{"id":"b"}]}`)

	if got := Float(v, 0, "duration"); got != 31200 {
		t.Errorf("Float = %v, want 31200", got)
	}
	if got := Int(v, 0, "duration"); got != 31200 {
		t.Errorf("Int = %v, want 31200", got)
	}
	if !Bool(v, false, "is_last_page") {
		t.Error("Bool = false, want true")
	}
	if got := len(Slice(v, "videos")); got != 2 {
		t.Errorf("Slice length = %d, want 2", got)
	}
	if got := String(v, "", "videos", 1, "id"); got != "b" {
		t.Errorf("indexed String = %q, want 'b'", got)
	}
}

func TestTypeMismatchReturnsDefault(t *testing.T) {
	v := decode(t, `{"title":42}`)

	if got := String(v, "dflt", "title"); got != "dflt" {
		t.Errorf("type mismatch should yield default, got %q", got)
	}
}
