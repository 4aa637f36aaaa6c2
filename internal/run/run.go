// Package run drives the token pipeline account by account and
// aggregates results.
package run

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/suno-tools/sunograb/internal/loginflow"
	"github.com/suno-tools/sunograb/internal/store"
)

// ErrNoToken is returned by a Driver when the session looked
// authenticated but no qualifying network call was observed.
var ErrNoToken = errors.New("no token observed")

// Options apply to every account of one pass.
type Options struct {
	Headless   bool
	ForceLogin bool
}

// Capture is what a Driver acquired for one account.
type Capture struct {
	Token   string
	Credits *float64
	Tier    string
}

// Driver acquires a token for one account. The browser-backed driver
// lives in driver.go; tests substitute their own.
type Driver interface {
	Acquire(ctx context.Context, acct store.Account, opts Options) (Capture, error)
}

// Orchestrator processes accounts strictly sequentially. Concurrent
// sessions would correlate automation signatures and contend for the
// machine, so there is deliberately no parallelism here.
type Orchestrator struct {
	Store  *store.Store
	Driver Driver
	Opts   Options
	Log    zerolog.Logger
	RunID  string
}

// New returns an orchestrator with a fresh run ID.
func New(st *store.Store, driver Driver, opts Options, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		Store:  st,
		Driver: driver,
		Opts:   opts,
		Log:    log,
		RunID:  uuid.NewString(),
	}
}

// Run processes emails in order and returns one Result per processed
// account, in input order. Per-account failures never stop the
// iteration; a cancelled ctx stops it between accounts only.
func (o *Orchestrator) Run(ctx context.Context, emails []string) []Result {
	results := make([]Result, 0, len(emails))

	for _, email := range emails {
		// Shutdown is honored here, never mid-account.
		if ctx.Err() != nil {
			o.Log.Warn().Err(ctx.Err()).Int("remaining", len(emails)-len(results)).
				Msg("interrupted between accounts")
			break
		}

		log := o.Log.With().Str("account", store.SanitizeEmail(email)).Logger()
		log.Info().Msg("processing account")

		password, _ := o.Store.PasswordFor(email)
		acct := store.Account{Email: email, Password: password}

		capture, err := o.Driver.Acquire(ctx, acct, o.Opts)
		if err != nil {
			code := classify(err)
			log.Warn().Err(err).Str("code", string(code)).Msg("account failed")
			results = append(results, Result{Email: email, Error: code})
			continue
		}

		rec := store.TokenRecord{
			Token:   capture.Token,
			Credits: capture.Credits,
			Tier:    capture.Tier,
		}
		if err := o.Store.SaveToken(email, rec); err != nil {
			log.Error().Err(err).Msg("token captured but not persisted")
		}

		var tier *string
		if capture.Tier != "" {
			tier = &capture.Tier
		}
		results = append(results, Result{
			Email:   email,
			Success: true,
			Token:   capture.Token,
			Credits: capture.Credits,
			Tier:    tier,
		})
		log.Info().Msg("token captured")
	}

	return results
}

// classify maps driver errors onto the fixed taxonomy. Anything outside
// the two login failures reads as a capture miss.
func classify(err error) Code {
	switch {
	case errors.Is(err, loginflow.ErrLoginRequired):
		return CodeLoginRequired
	case errors.Is(err, loginflow.ErrLoginTimeout):
		return CodeLoginTimeout
	default:
		return CodeNoToken
	}
}
