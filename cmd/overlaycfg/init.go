package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/overlaycfg/internal/hotkey"
	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default preferences and an empty custom loadout",
	Long: `Init creates the configured storage locations and writes factory
documents into them. Existing documents are left alone unless --force
is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false,
		"Overwrite existing documents")
}

// defaultDocuments renders the factory preferences and custom loadout.
func defaultDocuments() (map[string]string, error) {
	prefs := models.MakeDefaultPreferences()
	prefs.SelectedPreset = models.PresetPtr(models.PresetSlot1)

	bindings := models.UnboundBindings()
	for _, b := range hotkey.DefaultBindings() {
		bindings[b.Action.String()] = b
	}

	prefsText, err := models.MarshalDocument(models.NewPreferenceFile(prefs, bindings))
	if err != nil {
		return nil, err
	}
	loadoutText, err := models.MarshalDocument(models.NewLoadoutFile(nil))
	if err != nil {
		return nil, err
	}

	return map[string]string{
		storage.PreferencesPath:   prefsText,
		storage.CustomLoadoutPath: loadoutText,
	}, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	store, err := storage.Open(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	docs, err := defaultDocuments()
	if err != nil {
		return err
	}

	result := map[string]string{}
	for _, path := range []string{storage.PreferencesPath, storage.CustomLoadoutPath} {
		exists, err := store.Exists(ctx, storage.LocationDocuments, path)
		if err != nil {
			return err
		}
		if exists && !initForce {
			result[path] = "kept"
			continue
		}
		if err := store.Store(ctx, docs[path], storage.LocationDocuments, path); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		result[path] = "written"
	}

	if jsonOutput {
		printJSON(result)
		return nil
	}
	for _, path := range []string{storage.PreferencesPath, storage.CustomLoadoutPath} {
		if result[path] == "written" {
			printSuccess("✅ Wrote %s", path)
		} else {
			printWarning("Kept existing %s (use --force to overwrite)", path)
		}
	}
	return nil
}
