// Command gocredctl runs administrative tasks against a goCred store.
//
// Engine settings come from GOCRED_* variables (see goCred.LoadConfig);
// connections from GOCRED_REDIS_URL, GOCRED_POSTGRES_URL, or
// GOCRED_MONGO_URL with GOCRED_MONGO_DATABASE.
//
// Usage:
//
//	gocredctl migrate
//	gocredctl list-tokens [-user ID] [-json]
//	gocredctl revoke-token -id ID
//	gocredctl purge-expired
//	gocredctl security-report
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/internal/logging"
)

const usage = `usage: gocredctl [-log-level LEVEL] <command> [flags]

commands:
  migrate          create or upgrade the store schema
  list-tokens      list long-lived tokens
  revoke-token     revoke a token by id
  purge-expired    delete expired and retired credentials
  security-report  print the configuration's security posture as JSON
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "gocredctl:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid usage")

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("gocredctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	logLevel := global.String("log-level", "warn", "log level: debug, info, warn, or error")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return errUsage
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		return errors.Join(errUsage, err)
	}
	logger := logging.New(
		logging.WithLevel(level),
		logging.WithFormat(logging.FormatText),
		logging.WithOutput(stderr),
		logging.WithAttr(logging.Component("gocredctl")),
	)

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "migrate", "list-tokens", "revoke-token", "purge-expired", "security-report":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		global.Usage()
		return errUsage
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		userID  = fs.String("user", "", "list only this user's tokens")
		asJSON  = fs.Bool("json", false, "print JSON instead of a table")
		tokenID = fs.String("id", "", "token id to revoke")
	)
	if err := fs.Parse(cmdArgs); err != nil {
		return errUsage
	}
	if cmd == "revoke-token" && *tokenID == "" {
		return errors.Join(errUsage, errors.New("revoke-token requires -id"))
	}

	cfg, err := goCred.LoadConfig()
	if err != nil {
		return err
	}
	conns, err := connect(ctx, logger)
	if err != nil {
		return err
	}
	defer conns.Close()

	engine, err := conns.apply(goCred.New().WithConfig(cfg)).
		WithUserProvider(goCred.NewStaticUserProvider()).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()
	logger.InfoContext(ctx, "connected", slog.String("backend", string(engine.Backend())))

	switch cmd {
	case "migrate":
		if err := engine.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintf(stdout, "%s store is up to date\n", engine.Backend())
		return nil

	case "list-tokens":
		var tokens []goCred.Token
		if *userID != "" {
			tokens, err = engine.ListTokens(ctx, *userID)
		} else {
			tokens, err = engine.ListAllTokens(ctx)
		}
		if err != nil {
			return fmt.Errorf("list tokens: %w", err)
		}
		if *asJSON {
			return writeTokensJSON(stdout, tokens)
		}
		return writeTokensTable(stdout, tokens)

	case "revoke-token":
		tok, err := engine.RevokeToken(ctx, *tokenID)
		if err != nil {
			return fmt.Errorf("revoke %s: %w", *tokenID, err)
		}
		fmt.Fprintf(stdout, "revoked %s (%s, user %s)\n", tok.ID, tok.Metadata.Title, tok.UserID)
		return nil

	case "security-report":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(engine.SecurityReport())

	default:
		report, err := engine.PurgeExpired(ctx)
		if err != nil {
			return fmt.Errorf("purge: %w", err)
		}
		fmt.Fprintf(stdout, "purged %d reset codes, %d verifications, %d tokens\n",
			report.ResetCodes, report.Verifications, report.Tokens)
		return nil
	}
}

type tokenView struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	Revoked     bool       `json:"revoked"`
}

func toView(t goCred.Token) tokenView {
	return tokenView{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Metadata.Title,
		Description: t.Metadata.Description,
		CreatedAt:   t.CreatedAt,
		ExpiresAt:   t.ExpiresAt,
		LastUsedAt:  t.Metadata.LastUsedAt,
		Revoked:     t.Retired,
	}
}

func writeTokensJSON(w io.Writer, tokens []goCred.Token) error {
	views := make([]tokenView, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, toView(t))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

func writeTokensTable(w io.Writer, tokens []goCred.Token) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tTITLE\tCREATED\tEXPIRES\tLAST USED\tSTATUS")
	for _, t := range tokens {
		v := toView(t)
		status := "active"
		if v.Revoked {
			status = "revoked"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.UserID, v.Title,
			v.CreatedAt.Format(time.RFC3339),
			formatTime(v.ExpiresAt, "never"),
			formatTime(v.LastUsedAt, "-"),
			status,
		)
	}
	return tw.Flush()
}

func formatTime(t *time.Time, empty string) string {
	if t == nil {
		return empty
	}
	return t.UTC().Format(time.RFC3339)
}
