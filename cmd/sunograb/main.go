// Command sunograb acquires Suno session bearer tokens by driving a
// real browser per stored account and watching its API traffic.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/suno-tools/sunograb/cmd/sunograb/env"
	"github.com/suno-tools/sunograb/internal/store"
)

// Global flags
var (
	debug    bool
	stateDir string
)

func init() {
	flag.BoolVar(&debug, "debug", false, "enable debug output")
	flag.StringVar(&stateDir, "state", os.Getenv("SUNOGRAB_STATE_DIR"), "state directory (default ~/.sunograb)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sunograb <command> [arguments]\n\n")
		fmt.Fprintf(os.Stderr, "Token Commands:\n")
		fmt.Fprintf(os.Stderr, "  grab [email ...]   Capture tokens (default: all stored accounts)\n")
		fmt.Fprintf(os.Stderr, "  daemon             Run grab on a fixed-delay loop\n")
		fmt.Fprintf(os.Stderr, "  tokens             List captured token records\n\n")
		fmt.Fprintf(os.Stderr, "Account Commands:\n")
		fmt.Fprintf(os.Stderr, "  accounts list            List stored accounts\n")
		fmt.Fprintf(os.Stderr, "  accounts add <email>     Add an account (password prompted)\n")
		fmt.Fprintf(os.Stderr, "  accounts rm <email>      Remove an account, its profile and token\n\n")
		fmt.Fprintf(os.Stderr, "Other Commands:\n")
		fmt.Fprintf(os.Stderr, "  clear              Delete all profiles and the whole token map\n\n")
		fmt.Fprintf(os.Stderr, "Run 'sunograb <command> -h' for command options.\n")
	}
}

func main() {
	flag.Parse()

	// Stored env supplies defaults for sink endpoints and credentials.
	env.LoadStoredEnv()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sunograb: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	log := newLogger()

	st, err := store.New(stateDir)
	if err != nil {
		return err
	}

	args := flag.Args()
	cmd := "grab"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	// Interrupts are honored between accounts and between daemon passes,
	// never mid-step.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "grab":
		return cmdGrab(ctx, st, log, args)
	case "daemon":
		return cmdDaemon(ctx, st, log, args)
	case "tokens":
		return cmdTokens(st)
	case "accounts":
		return cmdAccounts(st, args)
	case "clear":
		return st.Clear()
	case "help", "-h", "--help":
		flag.Usage()
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
