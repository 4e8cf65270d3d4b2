package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the signature of a loadout or preferences file",
	Long: `Inspect reads the document signature and reports whether the file is
current, needs migration, or was written by a newer version.`,
	Example: `  overlaycfg inspect preferences.json
  overlaycfg inspect Loadouts/custom-auto.json --json
  overlaycfg inspect --location install Presets/slot-1.json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var inspectLocation string

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectLocation, "location", "l", "",
		"Read the document from a storage location (install, data, documents)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	var text string
	if inspectLocation != "" {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		stored, err := loadStored(ctx, inspectLocation, args[0])
		if err != nil {
			return err
		}
		text = stored
	} else {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		text = string(data)
	}

	info, err := inspectDocument(text)
	if err != nil {
		if jsonOutput {
			printJSON(map[string]interface{}{"file": args[0], "error": err.Error()})
		} else {
			printError("%s: %v", args[0], err)
		}
		return err
	}

	if jsonOutput {
		printJSON(info)
		return nil
	}

	fmt.Printf("📄 %s\n", args[0])
	fmt.Printf("   Document: %s (%s)\n", info.Document, info.Code)
	fmt.Printf("   Version:  %s (supported %s)\n", info.Version, info.Current)

	switch info.Status {
	case statusCurrent:
		printSuccess("   Up to date")
	case statusNeedsMigration:
		printWarning("   Needs migration")
	case statusTooNew:
		printError("   Written by a newer version; cannot be loaded")
	default:
		printError("   Invalid version string")
	}
	return nil
}
