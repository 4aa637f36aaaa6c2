// Package intercept observes a session's network traffic and captures
// the first bearer credential sent to the studio API, plus best-effort
// usage metadata from the billing endpoint.
package intercept

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/suno-tools/sunograb/internal/site"
)

const bearerPrefix = "Bearer "

// Interceptor captures at most one token per session: the first request
// to the API host carrying a bearer authorization wins, and every later
// match is discarded.
type Interceptor struct {
	site *site.Site
	log  zerolog.Logger

	mu      sync.Mutex
	token   string
	credits *float64
	tier    string

	once     sync.Once
	captured chan struct{}
}

// New returns an interceptor for s. Attach it before navigating so early
// requests are not missed.
func New(s *site.Site, log zerolog.Logger) *Interceptor {
	return &Interceptor{
		site:     s,
		log:      log,
		captured: make(chan struct{}),
	}
}

// Attach registers the network listeners on a session context. The
// listeners live until ctx is cancelled, so nothing leaks across
// sequential account runs.
func (ic *Interceptor) Attach(ctx context.Context) error {
	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		return err
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			ic.observeRequest(e.Request.URL, e.Request.Headers)
		case *network.EventResponseReceived:
			if e.Response == nil || !ic.site.IsUsageURL(e.Response.URL) {
				return
			}
			if e.Response.Status < 200 || e.Response.Status >= 300 {
				return
			}
			// Body fetches need the target executor and must not block
			// the event dispatch goroutine.
			reqID := e.RequestID
			go ic.fetchUsageBody(ctx, reqID)
		}
	})
	return nil
}

// Captured is closed exactly once, when the first qualifying bearer
// credential is observed.
func (ic *Interceptor) Captured() <-chan struct{} { return ic.captured }

// Token returns the captured token, if any.
func (ic *Interceptor) Token() (string, bool) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.token, ic.token != ""
}

// Usage returns whatever quota metadata was observed. Either value may
// be absent; this channel is advisory only.
func (ic *Interceptor) Usage() (credits *float64, tier string) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.credits, ic.tier
}

// observeRequest applies the first-wins capture policy to one outgoing
// request. Safe to call from any goroutine; idempotent after capture.
func (ic *Interceptor) observeRequest(url string, headers network.Headers) {
	if !ic.site.IsAPIRequest(url) {
		return
	}
	auth := headerValue(headers, "Authorization")
	if !strings.HasPrefix(auth, bearerPrefix) {
		return
	}
	token := strings.TrimPrefix(auth, bearerPrefix)
	if token == "" {
		return
	}

	ic.mu.Lock()
	if ic.token != "" {
		ic.mu.Unlock()
		return
	}
	ic.token = token
	ic.mu.Unlock()

	ic.once.Do(func() { close(ic.captured) })
	ic.log.Debug().Str("url", url).Msg("bearer credential captured")
}

func (ic *Interceptor) fetchUsageBody(ctx context.Context, reqID network.RequestID) {
	c := chromedp.FromContext(ctx)
	if c == nil || c.Target == nil {
		return
	}
	body, err := network.GetResponseBody(reqID).Do(cdp.WithExecutor(ctx, c.Target))
	if err != nil {
		ic.log.Debug().Err(err).Msg("usage body fetch failed")
		return
	}
	ic.observeUsageBody(body)
}

// observeUsageBody parses the billing payload. Failures are swallowed;
// this never blocks or fails the main capture.
func (ic *Interceptor) observeUsageBody(body []byte) {
	var payload struct {
		TotalCreditsLeft *float64 `json:"total_credits_left"`
		Plan             string   `json:"plan"`
		SubscriptionType string   `json:"subscription_type"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		ic.log.Debug().Err(err).Msg("usage payload parse failed")
		return
	}

	ic.mu.Lock()
	defer ic.mu.Unlock()
	if payload.TotalCreditsLeft != nil {
		ic.credits = payload.TotalCreditsLeft
	}
	if payload.Plan != "" {
		ic.tier = payload.Plan
	} else if payload.SubscriptionType != "" {
		ic.tier = payload.SubscriptionType
	}
}

// headerValue does a case-insensitive lookup in a CDP header map.
func headerValue(headers network.Headers, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
