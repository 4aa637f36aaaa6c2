package intercept

import (
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/rs/zerolog"

	"github.com/suno-tools/sunograb/internal/site"
)

const apiURL = "https://studio-api.prod.suno.com/api/feed/v2"

func newTestInterceptor() *Interceptor {
	return New(site.Default(), zerolog.Nop())
}

func TestFirstWinsCapture(t *testing.T) {
	ic := newTestInterceptor()

	ic.observeRequest(apiURL, network.Headers{"Authorization": "Bearer T1"})
	ic.observeRequest(apiURL, network.Headers{"Authorization": "Bearer T2"})

	tok, ok := ic.Token()
	if !ok {
		t.Fatal("no token captured")
	}
	if tok != "T1" {
		t.Errorf("Token = %q, want first-observed %q", tok, "T1")
	}

	select {
	case <-ic.Captured():
	default:
		t.Error("capture signal not resolved after first observation")
	}
}

func TestIgnoresNonMatchingRequests(t *testing.T) {
	ic := newTestInterceptor()

	ic.observeRequest("https://cdn.example.com/app.js", network.Headers{"Authorization": "Bearer T1"})
	ic.observeRequest(apiURL, network.Headers{"Cookie": "session=abc"})
	ic.observeRequest(apiURL, network.Headers{"Authorization": "Basic dXNlcg=="})
	ic.observeRequest(apiURL, network.Headers{"Authorization": "Bearer "})

	if tok, ok := ic.Token(); ok {
		t.Errorf("captured %q from a non-qualifying request", tok)
	}
	select {
	case <-ic.Captured():
		t.Error("capture signal resolved without a qualifying observation")
	default:
	}
}

func TestAuthorizationHeaderCaseInsensitive(t *testing.T) {
	ic := newTestInterceptor()
	ic.observeRequest(apiURL, network.Headers{"authorization": "Bearer T1"})
	if tok, ok := ic.Token(); !ok || tok != "T1" {
		t.Errorf("Token = %q, %v; want %q, true", tok, ok, "T1")
	}
}

func TestUsageBodyParsing(t *testing.T) {
	ic := newTestInterceptor()

	ic.observeUsageBody([]byte(`{"total_credits_left": 47.5, "plan": "pro"}`))
	credits, tier := ic.Usage()
	if credits == nil || *credits != 47.5 {
		t.Errorf("credits = %v, want 47.5", credits)
	}
	if tier != "pro" {
		t.Errorf("tier = %q, want %q", tier, "pro")
	}
}

func TestUsageBodyFallbackTierField(t *testing.T) {
	ic := newTestInterceptor()
	ic.observeUsageBody([]byte(`{"total_credits_left": 10, "subscription_type": "premier"}`))
	if _, tier := ic.Usage(); tier != "premier" {
		t.Errorf("tier = %q, want %q", tier, "premier")
	}
}

func TestUsageParseFailureSwallowed(t *testing.T) {
	ic := newTestInterceptor()

	ic.observeUsageBody([]byte(`not json`))
	credits, tier := ic.Usage()
	if credits != nil || tier != "" {
		t.Errorf("usage = %v, %q after parse failure; want empty", credits, tier)
	}

	// A later valid payload still lands.
	ic.observeUsageBody([]byte(`{"total_credits_left": 5}`))
	if credits, _ := ic.Usage(); credits == nil || *credits != 5 {
		t.Errorf("credits = %v after recovery, want 5", credits)
	}
}
