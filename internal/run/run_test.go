package run

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/suno-tools/sunograb/internal/loginflow"
	"github.com/suno-tools/sunograb/internal/store"
)

// stubDriver returns canned outcomes keyed by sanitized email.
type stubDriver struct {
	captures map[string]Capture
	errs     map[string]error
	seen     []store.Account
}

func (d *stubDriver) Acquire(_ context.Context, acct store.Account, _ Options) (Capture, error) {
	d.seen = append(d.seen, acct)
	key := store.SanitizeEmail(acct.Email)
	if err, ok := d.errs[key]; ok {
		return Capture{}, err
	}
	return d.captures[key], nil
}

func newTestOrchestrator(t *testing.T, driver Driver, opts Options) (*Orchestrator, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(st, driver, opts, zerolog.Nop()), st
}

func TestSingleAccountSuccess(t *testing.T) {
	driver := &stubDriver{captures: map[string]Capture{
		"a@x.com": {Token: "T1"},
	}}
	o, st := newTestOrchestrator(t, driver, Options{})
	if err := st.SaveAccounts([]store.Account{{Email: "a@x.com", Password: "p"}}); err != nil {
		t.Fatal(err)
	}

	results := o.Run(context.Background(), []string{"a@x.com"})

	want := []Result{{Email: "a@x.com", Success: true, Token: "T1"}}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}

	// Stored password is resolved internally, not passed by the caller.
	if len(driver.seen) != 1 || driver.seen[0].Password != "p" {
		t.Errorf("driver saw %+v, want password resolved from store", driver.seen)
	}

	rec, ok := st.LoadTokens()["a@x.com"]
	if !ok {
		t.Fatal("token map missing a@x.com after successful pass")
	}
	if rec.Token != "T1" {
		t.Errorf("stored token = %q, want %q", rec.Token, "T1")
	}
	if rec.UpdatedAt.IsZero() {
		t.Error("stored record has no timestamp")
	}
	if rec.Credits != nil || rec.Tier != "" {
		t.Errorf("stored record carries usage data %v/%q that was never observed", rec.Credits, rec.Tier)
	}
}

func TestHeadlessLoginRequiredWritesNoToken(t *testing.T) {
	driver := &stubDriver{errs: map[string]error{
		"a@x.com": loginflow.ErrLoginRequired,
	}}
	o, st := newTestOrchestrator(t, driver, Options{Headless: true})

	results := o.Run(context.Background(), []string{"a@x.com"})

	want := []Result{{Email: "a@x.com", Error: CodeLoginRequired}}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if len(st.LoadTokens()) != 0 {
		t.Error("a token record was written for a failed account")
	}
}

func TestMixedOutcomesPreserveInputOrder(t *testing.T) {
	driver := &stubDriver{
		captures: map[string]Capture{
			"b@x.com": {Token: "TB"},
			"d@x.com": {Token: "TD"},
		},
		errs: map[string]error{
			"a@x.com": loginflow.ErrLoginTimeout,
			"c@x.com": ErrNoToken,
		},
	}
	o, _ := newTestOrchestrator(t, driver, Options{})

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}
	results := o.Run(context.Background(), emails)

	if len(results) != len(emails) {
		t.Fatalf("got %d results for %d accounts", len(results), len(emails))
	}
	for i, r := range results {
		if r.Email != emails[i] {
			t.Errorf("results[%d].Email = %q, want %q", i, r.Email, emails[i])
		}
	}
	if results[0].Error != CodeLoginTimeout || results[2].Error != CodeNoToken {
		t.Errorf("error codes = %q, %q; want login_timeout, no_token", results[0].Error, results[2].Error)
	}
	if !results[1].Success || !results[3].Success {
		t.Error("successful accounts not reported as such")
	}
}

func TestUnknownErrorMapsToNoToken(t *testing.T) {
	driver := &stubDriver{errs: map[string]error{
		"a@x.com": errors.New("chrome exploded"),
	}}
	o, _ := newTestOrchestrator(t, driver, Options{})

	results := o.Run(context.Background(), []string{"a@x.com"})
	if results[0].Error != CodeNoToken {
		t.Errorf("Error = %q, want %q", results[0].Error, CodeNoToken)
	}
}

func TestInterruptStopsBetweenAccounts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	driver := &stubDriver{captures: map[string]Capture{"a@x.com": {Token: "T"}}}
	cancellingDriver := driverFunc(func(c context.Context, acct store.Account, opts Options) (Capture, error) {
		cancel() // simulate an interrupt arriving mid-account
		return driver.Acquire(c, acct, opts)
	})
	o, _ := newTestOrchestrator(t, cancellingDriver, Options{})

	results := o.Run(ctx, []string{"a@x.com", "b@x.com"})

	// The in-flight account completes; the next never starts.
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Email != "a@x.com" || !results[0].Success {
		t.Errorf("unexpected result %+v", results[0])
	}
}

func TestUsageMetadataFlowsThrough(t *testing.T) {
	credits := 47.5
	driver := &stubDriver{captures: map[string]Capture{
		"a@x.com": {Token: "T1", Credits: &credits, Tier: "pro"},
	}}
	o, st := newTestOrchestrator(t, driver, Options{})

	results := o.Run(context.Background(), []string{"a@x.com"})
	if results[0].Credits == nil || *results[0].Credits != 47.5 {
		t.Errorf("result credits = %v, want 47.5", results[0].Credits)
	}
	if results[0].Tier == nil || *results[0].Tier != "pro" {
		t.Errorf("result tier = %v, want pro", results[0].Tier)
	}

	rec := st.LoadTokens()["a@x.com"]
	if rec.Credits == nil || *rec.Credits != 47.5 || rec.Tier != "pro" {
		t.Errorf("stored record = %+v, want credits/tier persisted", rec)
	}
}

type driverFunc func(ctx context.Context, acct store.Account, opts Options) (Capture, error)

func (f driverFunc) Acquire(ctx context.Context, acct store.Account, opts Options) (Capture, error) {
	return f(ctx, acct, opts)
}
