// Package browser owns one persistent Chrome session per account,
// bound to that account's profile directory, and guarantees teardown on
// every exit path.
package browser

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/suno-tools/sunograb/internal/site"
)

// Options control how a session is launched.
type Options struct {
	// Headless launches without a visible window. Headless sessions can
	// never complete an interactive login.
	Headless bool

	// ForceLogin wipes the profile directory before launch so the session
	// starts from a clean, logged-out state.
	ForceLogin bool
}

// Session is one live browser bound to an account profile. Ctx is a
// chromedp context targeting the session's first page.
type Session struct {
	Ctx context.Context

	closeOnce   sync.Once
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	log         zerolog.Logger
}

// PrepareProfile ensures the profile directory exists, wiping it first
// when force is set. The wipe happens before any browser process is
// started, so a forced session always begins logged out.
func PrepareProfile(dir string, force bool) error {
	if force {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("wipe profile: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Open launches a persistent Chrome session on profileDir and returns
// once the browser is up with its first page attached.
func Open(ctx context.Context, profileDir string, opts Options, log zerolog.Logger) (*Session, error) {
	if err := PrepareProfile(profileDir, opts.ForceLogin); err != nil {
		return nil, err
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(profileDir),
		chromedp.UserAgent(site.UserAgent),
		chromedp.WindowSize(1280, 800),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("remote-debugging-port", "0"),

		// Keep the session from advertising itself as automated.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Debug().Msgf("chromedp: "+format, args...)
		}))

	s := &Session{
		Ctx:         browserCtx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		log:         log,
	}

	// NewContext is lazy; an empty Run starts the browser and attaches to
	// its first page (or opens one if none exists).
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	log.Debug().Str("profile", profileDir).Bool("headless", opts.Headless).Msg("browser session open")
	return s, nil
}

// Close tears the session down. It is idempotent and safe to defer on
// every path, including failed launches.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		// Cancel waits for the browser to exit cleanly; the allocator
		// cancel below kills the process group if it does not.
		if err := chromedp.Cancel(s.Ctx); err != nil {
			s.log.Debug().Err(err).Msg("graceful browser shutdown failed")
		}
		s.cancelCtx()
		s.cancelAlloc()
		s.log.Debug().Msg("browser session closed")
	})
}
