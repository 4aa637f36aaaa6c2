package loginflow

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/suno-tools/sunograb/internal/site"
)

func newTestFlow() *Flow {
	return New(site.Default(), zerolog.Nop())
}

func TestClassify(t *testing.T) {
	f := newTestFlow()

	tests := []struct {
		name   string
		url    string
		marker bool
		want   State
	}{
		{"hosted login", "https://accounts.suno.com/sign-in?redirect_url=x", false, StateNeedsLogin},
		{"app sign-in path", "https://suno.com/sign-in", false, StateNeedsLogin},
		{"login wins over marker", "https://accounts.suno.com/sign-in", true, StateNeedsLogin},
		{"marker visible", "https://suno.com/create", true, StatePossiblyAuthenticated},
		{"nothing recognized", "https://suno.com/some-new-layout", false, StateUnknown},
		{"unparseable", "://", false, StateUnknown},
	}
	for _, tt := range tests {
		if got := f.Classify(tt.url, tt.marker); got != tt.want {
			t.Errorf("%s: Classify(%q, %v) = %v, want %v", tt.name, tt.url, tt.marker, got, tt.want)
		}
	}
}

func TestStateStrings(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUnknown, "unknown"},
		{StateNeedsLogin, "needs_login"},
		{StatePossiblyAuthenticated, "possibly_authenticated"},
		{StateAuthenticated, "authenticated"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestKeyDelayBounds(t *testing.T) {
	f := newTestFlow()
	for i := 0; i < 200; i++ {
		d := f.keyDelay()
		if d < f.MinKeyDelay || d >= f.MaxKeyDelay {
			t.Fatalf("keyDelay() = %v, want in [%v, %v)", d, f.MinKeyDelay, f.MaxKeyDelay)
		}
	}
}

func TestDefaultsSane(t *testing.T) {
	f := newTestFlow()
	if len(f.Candidates) == 0 {
		t.Error("no entry candidates configured")
	}
	if len(f.SignedInMarkers) == 0 {
		t.Error("no signed-in markers configured")
	}
	if f.RedirectTimeout < time.Minute {
		t.Errorf("RedirectTimeout = %v, want minutes-scale", f.RedirectTimeout)
	}
	if f.PasswordTimeout >= f.FieldTimeout {
		t.Errorf("password discovery timeout %v should be shorter than email discovery %v",
			f.PasswordTimeout, f.FieldTimeout)
	}
}
