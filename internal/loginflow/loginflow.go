// Package loginflow classifies a session's authentication state and,
// when possible, automates credential submission with human-like pacing.
//
// The classification rests entirely on URL and DOM-marker heuristics
// tied to the target site's current markup. When neither heuristic
// matches, the flow reports StateUnknown rather than guessing; the
// candidate tables below are the knobs to turn when the site's layout
// shifts.
package loginflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rs/zerolog"

	"github.com/suno-tools/sunograb/internal/site"
)

// State is the outcome of login-state detection.
type State int

const (
	StateUnknown State = iota
	StateNeedsLogin
	StatePossiblyAuthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateNeedsLogin:
		return "needs_login"
	case StatePossiblyAuthenticated:
		return "possibly_authenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

var (
	// ErrLoginRequired means authentication is needed but the session is
	// headless and cannot complete an interactive login.
	ErrLoginRequired = errors.New("login required but session is headless")

	// ErrLoginTimeout means an interactive login did not complete within
	// the redirect wait bound.
	ErrLoginTimeout = errors.New("login not completed within wait bound")
)

// EntryCandidate is one (name, selector) pair of the ordered entry-click
// table. The first visible match wins.
type EntryCandidate struct {
	Name     string
	Selector string
}

// DefaultEntryCandidates are tried in order before the keyword fallback.
var DefaultEntryCandidates = []EntryCandidate{
	{"create-nav", `a[href^="/create"]`},
	{"create-button", `button[aria-label="Create"]`},
	{"signin-button", `button[data-testid="sign-in-button"]`},
	{"signin-link", `a[href*="sign-in"]`},
}

// EntryKeywords drive the fallback scan over visible clickable controls.
var EntryKeywords = []string{"create", "sign in", "log in"}

// DefaultSignedInMarkers are probed, in order, to classify a session as
// possibly authenticated. Advisory only.
var DefaultSignedInMarkers = []string{
	`img[alt*="avatar" i]`,
	`[data-testid="user-menu"]`,
	`button[aria-label="Account"]`,
}

// Flow runs the detection/automation state machine on one session.
type Flow struct {
	Site *site.Site
	Log  zerolog.Logger

	Candidates      []EntryCandidate
	SignedInMarkers []string

	NavTimeout      time.Duration
	SettleDelay     time.Duration
	FieldTimeout    time.Duration // email input discovery
	PasswordTimeout time.Duration // shorter; missing field is tolerated
	RedirectTimeout time.Duration // dominant wall-clock cost

	// Typing pacing bounds.
	MinKeyDelay, MaxKeyDelay time.Duration
	MinPause, MaxPause       time.Duration
}

// New returns a flow with the default candidate tables and timing.
func New(s *site.Site, log zerolog.Logger) *Flow {
	return &Flow{
		Site:            s,
		Log:             log,
		Candidates:      DefaultEntryCandidates,
		SignedInMarkers: DefaultSignedInMarkers,
		NavTimeout:      40 * time.Second,
		SettleDelay:     2 * time.Second,
		FieldTimeout:    20 * time.Second,
		PasswordTimeout: 8 * time.Second,
		RedirectTimeout: 3 * time.Minute,
		MinKeyDelay:     30 * time.Millisecond,
		MaxKeyDelay:     90 * time.Millisecond,
		MinPause:        300 * time.Millisecond,
		MaxPause:        800 * time.Millisecond,
	}
}

// Run drives the state machine: navigate, entry click, classify, then
// automate login when needed. It returns the terminal state along with
// ErrLoginRequired or ErrLoginTimeout for the two per-account failures.
func (f *Flow) Run(ctx context.Context, email, password string, headless bool) (State, error) {
	f.navigate(ctx)
	f.triggerEntry(ctx)
	_ = chromedp.Run(ctx, chromedp.Sleep(f.SettleDelay))

	state := f.detect(ctx)
	f.Log.Debug().Stringer("state", state).Msg("login state classified")

	switch state {
	case StateNeedsLogin:
		if headless {
			return state, ErrLoginRequired
		}
		if err := f.automateLogin(ctx, email, password); err != nil {
			f.Log.Warn().Err(err).Msg("credential automation failed; waiting for manual login")
		}
		if err := f.awaitRedirect(ctx); err != nil {
			return state, err
		}
		return StateAuthenticated, nil
	case StatePossiblyAuthenticated:
		return StateAuthenticated, nil
	default:
		// Unrecognized layout: neither heuristic matched. Proceed to
		// capture without guessing a login flow.
		return StateUnknown, nil
	}
}

// navigate loads the target URL under a bounded timeout. A timeout is
// logged and tolerated; the flow continues with whatever the page
// reached.
func (f *Flow) navigate(ctx context.Context) {
	nctx, cancel := context.WithTimeout(ctx, f.NavTimeout)
	defer cancel()
	if err := chromedp.Run(nctx, chromedp.Navigate(f.Site.TargetURL)); err != nil {
		f.Log.Warn().Err(err).Msg("navigation did not settle; continuing with current page state")
	}
}

// triggerEntry attempts the ordered candidate table, then the keyword
// fallback. Finding nothing to click is not fatal.
func (f *Flow) triggerEntry(ctx context.Context) {
	for _, c := range f.Candidates {
		var clicked bool
		js := fmt.Sprintf(clickVisibleTmpl, c.Selector)
		if err := chromedp.Run(ctx, chromedp.Evaluate(js, &clicked)); err != nil {
			f.Log.Debug().Err(err).Str("candidate", c.Name).Msg("entry candidate probe failed")
			continue
		}
		if clicked {
			f.Log.Debug().Str("candidate", c.Name).Msg("entry control clicked")
			return
		}
	}

	kws, _ := json.Marshal(EntryKeywords)
	var clicked bool
	js := fmt.Sprintf(clickKeywordTmpl, kws)
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &clicked)); err != nil {
		f.Log.Debug().Err(err).Msg("keyword fallback scan failed")
		return
	}
	if clicked {
		f.Log.Debug().Msg("entry control clicked via keyword fallback")
	} else {
		f.Log.Debug().Msg("no entry control matched; proceeding without click")
	}
}

// detect reads the current URL and probes the signed-in markers, then
// classifies.
func (f *Flow) detect(ctx context.Context) State {
	var current string
	if err := chromedp.Run(ctx, chromedp.Location(&current)); err != nil {
		f.Log.Debug().Err(err).Msg("could not read current URL")
		return StateUnknown
	}
	return f.Classify(current, f.markerVisible(ctx))
}

// Classify maps a current URL and the signed-in marker probe onto a
// state. The login-host match dominates; the marker is advisory; neither
// matching yields StateUnknown, never a silent default.
func (f *Flow) Classify(currentURL string, markerVisible bool) State {
	if f.Site.IsLoginURL(currentURL) {
		return StateNeedsLogin
	}
	if markerVisible {
		return StatePossiblyAuthenticated
	}
	return StateUnknown
}

func (f *Flow) markerVisible(ctx context.Context) bool {
	for _, sel := range f.SignedInMarkers {
		var visible bool
		js := fmt.Sprintf(visibleTmpl, sel)
		if err := chromedp.Run(ctx, chromedp.Evaluate(js, &visible)); err != nil {
			continue
		}
		if visible {
			return true
		}
	}
	return false
}

// automateLogin fills the email (and, when known, password) fields with
// randomized pacing and submits. A missing email input falls back to
// manual entry; a missing password field is tolerated the same way.
func (f *Flow) automateLogin(ctx context.Context, email, password string) error {
	const emailSel = `input[type="email"], input[name="identifier"], input[name="email"]`

	ectx, cancel := context.WithTimeout(ctx, f.FieldTimeout)
	err := chromedp.Run(ectx, chromedp.WaitVisible(emailSel, chromedp.ByQuery))
	cancel()
	if err != nil {
		return fmt.Errorf("email input not found: %w", err)
	}

	if err := chromedp.Run(ctx, chromedp.Click(emailSel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("focus email input: %w", err)
	}
	f.pause()
	if err := f.typeInto(ctx, emailSel, email); err != nil {
		return fmt.Errorf("type email: %w", err)
	}
	f.pause()
	if err := chromedp.Run(ctx, chromedp.SendKeys(emailSel, kb.Enter, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("submit email: %w", err)
	}

	if password == "" {
		return nil
	}

	const passwordSel = `input[type="password"]`
	pctx, cancel := context.WithTimeout(ctx, f.PasswordTimeout)
	err = chromedp.Run(pctx, chromedp.WaitVisible(passwordSel, chromedp.ByQuery))
	cancel()
	if err != nil {
		f.Log.Debug().Err(err).Msg("password field did not appear; leaving it to manual entry")
		return nil
	}

	if err := chromedp.Run(ctx, chromedp.Click(passwordSel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("focus password input: %w", err)
	}
	f.pause()
	if err := f.typeInto(ctx, passwordSel, password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}
	f.pause()
	if err := chromedp.Run(ctx, chromedp.SendKeys(passwordSel, kb.Enter, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("submit password: %w", err)
	}
	return nil
}

// awaitRedirect waits for the URL to both leave the login host and reach
// the target host. This is the dominant wall-clock cost of the whole
// pipeline; expiry yields ErrLoginTimeout.
func (f *Flow) awaitRedirect(ctx context.Context) error {
	pollCtx, cancel := context.WithTimeout(ctx, f.RedirectTimeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-pollCtx.Done():
			return ErrLoginTimeout
		case <-ticker.C:
			var current string
			if err := chromedp.Run(pollCtx, chromedp.Location(&current)); err != nil {
				continue
			}
			if !f.Site.IsLoginURL(current) && f.Site.IsTargetURL(current) {
				f.Log.Debug().Str("url", current).Msg("login redirect completed")
				return nil
			}
		}
	}
}

// typeInto sends text one character at a time with randomized delays.
func (f *Flow) typeInto(ctx context.Context, sel, text string) error {
	for _, r := range text {
		if err := chromedp.Run(ctx, chromedp.SendKeys(sel, string(r), chromedp.ByQuery)); err != nil {
			return err
		}
		time.Sleep(f.keyDelay())
	}
	return nil
}

func (f *Flow) keyDelay() time.Duration {
	return f.MinKeyDelay + time.Duration(rand.Int63n(int64(f.MaxKeyDelay-f.MinKeyDelay)))
}

func (f *Flow) pause() {
	time.Sleep(f.MinPause + time.Duration(rand.Int63n(int64(f.MaxPause-f.MinPause))))
}

const clickVisibleTmpl = `(() => {
	const el = document.querySelector(%q);
	if (!el) return false;
	const r = el.getBoundingClientRect();
	if (r.width === 0 || r.height === 0) return false;
	el.click();
	return true;
})()`

const visibleTmpl = `(() => {
	const el = document.querySelector(%q);
	if (!el) return false;
	const r = el.getBoundingClientRect();
	return r.width > 0 && r.height > 0;
})()`

const clickKeywordTmpl = `(() => {
	const keywords = %s;
	for (const el of document.querySelectorAll('button, a, [role="button"]')) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		const text = (el.textContent || '').trim().toLowerCase();
		if (!text) continue;
		for (const kw of keywords) {
			if (text.includes(kw)) { el.click(); return true; }
		}
	}
	return false;
})()`
