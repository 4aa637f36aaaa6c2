package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/suno-tools/sunograb/internal/run"
)

func sample() []run.Result {
	credits := 47.5
	tier := "pro"
	return []run.Result{
		{Email: "a@x.com", Success: true, Token: "T1", Credits: &credits, Tier: &tier},
		{Email: "b@x.com", Error: run.CodeLoginRequired},
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, sample()); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"a@x.com", "ok", "47.5", "pro", "b@x.com", "failed", "login_required"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "T1") {
		t.Error("table output leaks the raw token")
	}
}

func TestWriteJSONShape(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sample()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d entries, want 2", len(decoded))
	}

	// Absent usage metadata must render as explicit nulls.
	fail := decoded[1]
	if v, present := fail["credits"]; !present || v != nil {
		t.Errorf("credits = %v (present=%v), want explicit null", v, present)
	}
	if v, present := fail["tier"]; !present || v != nil {
		t.Errorf("tier = %v (present=%v), want explicit null", v, present)
	}
	if _, present := fail["token"]; present {
		t.Error("failed result carries a token field")
	}
}
