// Package tokenwait races the interceptor's capture signal against an
// explicit, ordered series of timeout tiers.
package tokenwait

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// CaptureSource is the slice of the interceptor the waiter needs.
type CaptureSource interface {
	// Captured is closed when the first qualifying token is observed.
	Captured() <-chan struct{}
	// Token returns the captured token, if any.
	Token() (string, bool)
}

// Tier is one wait window. InteractiveOnly tiers are skipped for
// headless sessions.
type Tier struct {
	Name            string
	Timeout         time.Duration
	InteractiveOnly bool
}

// DefaultTiers waits briefly for background traffic, then leaves a
// longer manual-interaction window for interactive sessions only.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "network", Timeout: 30 * time.Second},
		{Name: "manual", Timeout: 3 * time.Minute, InteractiveOnly: true},
	}
}

// Waiter applies the tier policy to one session.
type Waiter struct {
	Tiers         []Tier
	SettleTimeout time.Duration
	Log           zerolog.Logger
}

// New returns a waiter with the default tiers.
func New(log zerolog.Logger) *Waiter {
	return &Waiter{
		Tiers:         DefaultTiers(),
		SettleTimeout: 10 * time.Second,
		Log:           log,
	}
}

// Await returns the captured token, or "" and false once every
// applicable tier has expired. If a token was already captured during
// the login flow it returns immediately.
func (w *Waiter) Await(ctx context.Context, src CaptureSource, headless bool) (string, bool) {
	if tok, ok := src.Token(); ok {
		return tok, true
	}

	w.settle(ctx)
	w.nudge(ctx)

	return w.awaitSignal(ctx, src, headless)
}

// awaitSignal runs the tier race itself, with no page interaction.
func (w *Waiter) awaitSignal(ctx context.Context, src CaptureSource, headless bool) (string, bool) {
	for _, tier := range w.Tiers {
		if tier.InteractiveOnly && headless {
			continue
		}
		w.Log.Debug().Str("tier", tier.Name).Dur("timeout", tier.Timeout).Msg("waiting for token")

		timer := time.NewTimer(tier.Timeout)
		select {
		case <-src.Captured():
			timer.Stop()
			return src.Token()
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", false
		}
	}
	return src.Token()
}

// settle gives in-flight page activity a bounded chance to finish;
// expiry is tolerated.
func (w *Waiter) settle(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, w.SettleTimeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sctx.Done():
			return
		case <-ticker.C:
			var ready bool
			if err := chromedp.Run(sctx, chromedp.Evaluate(`document.readyState === "complete"`, &ready)); err != nil {
				return
			}
			if ready {
				return
			}
		}
	}
}

// nudge performs one benign scroll to provoke lazy requests.
func (w *Waiter) nudge(ctx context.Context) {
	if err := chromedp.Run(ctx, chromedp.Evaluate(`window.scrollBy(0, 400); true`, nil)); err != nil {
		w.Log.Debug().Err(err).Msg("scroll nudge failed")
	}
}
