package run

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/suno-tools/sunograb/internal/browser"
	"github.com/suno-tools/sunograb/internal/intercept"
	"github.com/suno-tools/sunograb/internal/loginflow"
	"github.com/suno-tools/sunograb/internal/site"
	"github.com/suno-tools/sunograb/internal/store"
	"github.com/suno-tools/sunograb/internal/tokenwait"
)

// BrowserDriver is the real pipeline: one persistent browser session per
// account, interceptor attached before navigation, login flow, tiered
// token wait.
type BrowserDriver struct {
	Store *store.Store
	Site  *site.Site
	Log   zerolog.Logger
}

// NewBrowserDriver wires the driver against st and the default site
// bindings.
func NewBrowserDriver(st *store.Store, log zerolog.Logger) *BrowserDriver {
	return &BrowserDriver{Store: st, Site: site.Default(), Log: log}
}

// Acquire runs the full per-account pipeline. The session is torn down
// on every path out of this function.
func (d *BrowserDriver) Acquire(ctx context.Context, acct store.Account, opts Options) (Capture, error) {
	profile := d.Store.ProfileDir(acct.Email)
	sess, err := browser.Open(ctx, profile, browser.Options{
		Headless:   opts.Headless,
		ForceLogin: opts.ForceLogin,
	}, d.Log)
	if err != nil {
		return Capture{}, fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	// Attach before navigating so early API calls are not missed.
	ic := intercept.New(d.Site, d.Log)
	if err := ic.Attach(sess.Ctx); err != nil {
		return Capture{}, fmt.Errorf("attach interceptor: %w", err)
	}

	flow := loginflow.New(d.Site, d.Log)
	state, err := flow.Run(sess.Ctx, acct.Email, acct.Password, opts.Headless)
	if err != nil {
		return Capture{}, err
	}
	d.Log.Debug().Stringer("state", state).Msg("login flow finished")

	waiter := tokenwait.New(d.Log)
	token, ok := waiter.Await(sess.Ctx, ic, opts.Headless)
	if !ok {
		return Capture{}, ErrNoToken
	}

	credits, tier := ic.Usage()
	return Capture{Token: token, Credits: credits, Tier: tier}, nil
}
