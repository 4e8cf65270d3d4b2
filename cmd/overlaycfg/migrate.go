package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <file>",
	Short: "Upgrade a loadout or preferences file to the current version",
	Long: `Migrate replays every migration step newer than the file's version.
The file is rewritten in place unless --out is given; the previous
contents are kept next to it with a .backup suffix.`,
	Example: `  overlaycfg migrate preferences.json
  overlaycfg migrate old-loadout.json --out new-loadout.json
  overlaycfg migrate preferences.json --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

var (
	migrateOut    string
	migrateDryRun bool
)

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVarP(&migrateOut, "out", "o", "",
		"Write the migrated document here instead of in place")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false,
		"Show what would change without writing")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	src := args[0]
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	text, report, err := migrateDocument(string(data), logger)
	if err != nil {
		if msg, ok := models.TerminalMessage(err); ok {
			printError("%s", msg)
		} else {
			printError("Migration failed: %v", err)
		}
		return err
	}

	dest := src
	if migrateOut != "" {
		dest = migrateOut
	}

	result := map[string]interface{}{
		"file":    src,
		"from":    report.From,
		"to":      report.To,
		"applied": report.Applied,
		"no_op":   report.NoOp,
		"skipped": len(report.Skipped),
		"dry_run": migrateDryRun,
	}

	if !migrateDryRun && !(report.NoOp && dest == src) {
		if err := writeDocument(cmd.Context(), dest, text); err != nil {
			return err
		}
		result["written"] = dest
	}

	if jsonOutput {
		printJSON(result)
		return nil
	}

	if report.NoOp {
		printSuccess("✅ %s is already at version %s", src, report.To)
	} else {
		fmt.Printf("🔄 %s: %s → %s\n", report.Document, report.From, report.To)
		for _, step := range report.Applied {
			fmt.Printf("   applied %s\n", step)
		}
	}
	for _, skipped := range report.Skipped {
		printWarning("   dropped: %v", skipped)
	}

	switch {
	case migrateDryRun:
		printWarning("Dry run; nothing written")
	case result["written"] != nil:
		printSuccess("✅ Wrote %s", dest)
	}
	return nil
}

// writeDocument stores text at path through a LocalStore rooted at the
// file's directory, so the write is atomic and the previous file is backed
// up.
func writeDocument(ctx context.Context, path, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve output: %w", err)
	}

	store, err := storage.NewLocalStore(map[storage.Location]string{
		storage.LocationDocuments: filepath.Dir(abs),
	}, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Store(ctx, text, storage.LocationDocuments, filepath.Base(abs)); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
