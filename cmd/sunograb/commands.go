package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/suno-tools/sunograb/internal/report"
	runpkg "github.com/suno-tools/sunograb/internal/run"
	"github.com/suno-tools/sunograb/internal/sink"
	"github.com/suno-tools/sunograb/internal/store"
)

// grabOptions are shared by the grab and daemon commands.
type grabOptions struct {
	headless         bool
	forceLogin       bool
	jsonOut          bool
	submitURL        string
	firestoreCreds   string
	firestoreProject string
}

func registerGrabFlags(fs *flag.FlagSet, opts *grabOptions) {
	fs.BoolVar(&opts.headless, "headless", false, "run the browser without a window (cannot complete interactive logins)")
	fs.BoolVar(&opts.forceLogin, "force", false, "wipe each account's profile before launch to force a clean login")
	fs.BoolVar(&opts.jsonOut, "json", false, "emit results as JSON instead of a table")
	fs.StringVar(&opts.submitURL, "submit", os.Getenv("SUNOGRAB_SUBMIT_URL"), "POST successful results to this URL")
	fs.StringVar(&opts.firestoreCreds, "firestore-creds", os.Getenv("SUNOGRAB_FIRESTORE_CREDS"), "Firestore service-account credentials file")
	fs.StringVar(&opts.firestoreProject, "firestore-project", os.Getenv("SUNOGRAB_FIRESTORE_PROJECT"), "Firestore project ID")
}

func cmdGrab(ctx context.Context, st *store.Store, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("grab", flag.ContinueOnError)
	opts := &grabOptions{}
	registerGrabFlags(fs, opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return grabOnce(ctx, st, log, opts, fs.Args())
}

func grabOnce(ctx context.Context, st *store.Store, log zerolog.Logger, opts *grabOptions, emails []string) error {
	if len(emails) == 0 {
		for _, a := range st.LoadAccounts() {
			emails = append(emails, a.Email)
		}
	}
	if len(emails) == 0 {
		return fmt.Errorf("no accounts: pass emails or add some with 'sunograb accounts add'")
	}

	// The document sink's credentials are the one prerequisite checked
	// before any account is touched.
	var docSink *sink.DocSink
	if opts.firestoreCreds != "" {
		ds, err := sink.NewDocSink(ctx, opts.firestoreCreds, opts.firestoreProject)
		if err != nil {
			return err
		}
		docSink = ds
	}

	driver := runpkg.NewBrowserDriver(st, log)
	orch := runpkg.New(st, driver, runpkg.Options{
		Headless:   opts.headless,
		ForceLogin: opts.forceLogin,
	}, log)

	results := orch.Run(ctx, emails)

	if debug {
		spew.Fdump(os.Stderr, results)
	}

	if opts.jsonOut {
		if err := report.WriteJSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		if err := report.WriteTable(os.Stdout, results); err != nil {
			return err
		}
	}

	if opts.submitURL != "" {
		client := sink.NewSubmitClient(opts.submitURL, orch.RunID)
		if err := client.Submit(ctx, results); err != nil {
			log.Error().Err(err).Msg("HTTP submission failed")
		}
	}
	if docSink != nil {
		if err := docSink.Upsert(ctx, results); err != nil {
			log.Error().Err(err).Msg("document upsert failed")
		}
	}
	return nil
}

func cmdDaemon(ctx context.Context, st *store.Store, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	every := fs.Duration("every", time.Hour, "delay between passes")
	opts := &grabOptions{}
	registerGrabFlags(fs, opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	emails := fs.Args()

	for {
		if err := grabOnce(ctx, st, log, opts, emails); err != nil {
			log.Error().Err(err).Msg("pass failed")
		}
		log.Info().Dur("delay", *every).Msg("pass complete; sleeping")

		select {
		case <-ctx.Done():
			log.Info().Msg("daemon stopping")
			return nil
		case <-time.After(*every):
		}
	}
}

func cmdTokens(st *store.Store) error {
	keys, tokens := st.ListTokens()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tUPDATED\tCREDITS\tTIER\tTOKEN")
	for _, k := range keys {
		rec := tokens[k]
		credits := "-"
		if rec.Credits != nil {
			credits = fmt.Sprintf("%g", *rec.Credits)
		}
		tier := rec.Tier
		if tier == "" {
			tier = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			k, rec.UpdatedAt.Format(time.RFC3339), credits, tier, maskToken(rec.Token))
	}
	return tw.Flush()
}

func cmdAccounts(st *store.Store, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ACCOUNT\tPASSWORD\tPROFILE")
		for _, a := range st.LoadAccounts() {
			pw := "-"
			if a.Password != "" {
				pw = "stored"
			}
			profile := "-"
			if st.ProfileExists(a.Email) {
				profile = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", store.SanitizeEmail(a.Email), pw, profile)
		}
		return tw.Flush()

	case "add":
		if len(args) != 1 {
			return fmt.Errorf("usage: sunograb accounts add <email>")
		}
		email := args[0]
		password, err := promptPassword(email)
		if err != nil {
			return err
		}
		accounts := st.LoadAccounts()
		key := store.SanitizeEmail(email)
		for i, a := range accounts {
			if store.SanitizeEmail(a.Email) == key {
				accounts[i].Password = password
				return st.SaveAccounts(accounts)
			}
		}
		accounts = append(accounts, store.Account{Email: email, Password: password})
		return st.SaveAccounts(accounts)

	case "rm":
		if len(args) != 1 {
			return fmt.Errorf("usage: sunograb accounts rm <email>")
		}
		email := args[0]
		if err := st.RemoveAccount(email); err != nil {
			return err
		}
		key := store.SanitizeEmail(email)
		accounts := st.LoadAccounts()
		kept := accounts[:0]
		for _, a := range accounts {
			if store.SanitizeEmail(a.Email) != key {
				kept = append(kept, a)
			}
		}
		return st.SaveAccounts(kept)

	default:
		return fmt.Errorf("unknown accounts subcommand %q", sub)
	}
}

// promptPassword reads a password without echo when stdin is a
// terminal. An empty password is allowed; the login flow then leaves
// the password step to manual entry.
func promptPassword(email string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}
	fmt.Fprintf(os.Stderr, "Password for %s (empty to skip): ", email)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func maskToken(token string) string {
	if len(token) <= 12 {
		return "****"
	}
	return token[:6] + "..." + token[len(token)-4:]
}
