package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/sitetime/internal/storage"
)

// setDB allows tests to inject a database connection.
func (c *ClearCommand) setDB(db *sql.DB) {
	c.db = db
}

// Execute implements the go-flags Commander interface for ClearCommand.
func (c *ClearCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("clear requires --all flag for safety")
	}

	if !c.Force {
		fmt.Println("⚠ WARNING: This will reset the time recorded for every address.")
		fmt.Println()
		fmt.Println("This action cannot be undone.")
		fmt.Println()
		fmt.Print(`Type "CLEAR" to confirm: `)

		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return fmt.Errorf("aborted: no input received")
		}
		if strings.TrimSpace(scanner.Text()) != "CLEAR" {
			return fmt.Errorf("aborted: confirmation text did not match")
		}
	}

	api, db := c.api, c.db
	if api == nil || db == nil {
		cfg, err := loadConfig(c.globals)
		if err != nil {
			return err
		}
		if api == nil {
			api = newClient(cfg)
		}
		if db == nil {
			store, opened, err := openStore(cfg)
			if err != nil {
				return err
			}
			store.Close()
			defer opened.Close()
			db = opened
		}
	}

	via, err := clearAll(context.Background(), api, db)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"cleared": true, "via": via})
	}
	fmt.Printf("Cleared all durations (via %s).\n", via)
	return nil
}

// clearAll goes through a running daemon when one answers; clearing the
// database underneath it would be undone by its next flush.
func clearAll(ctx context.Context, api daemonAPI, db *sql.DB) (string, error) {
	if _, err := api.Status(ctx); err == nil {
		if err := api.Clear(ctx); err != nil {
			return "", fmt.Errorf("clear via daemon: %w", err)
		}
		return "daemon", nil
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		return "", fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	if err := store.Clear(ctx); err != nil {
		return "", fmt.Errorf("clear failed: %w", err)
	}
	return "database", nil
}
