package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/overlaycfg/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list [location]",
	Short: "List stored documents and their versions",
	Long: `List walks a storage location (Documents by default) and reports the
signature of every document found there. Files without a signature, such
as block lists, are listed with status "plain".`,
	Example: `  overlaycfg list
  overlaycfg list install --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

type listedDocument struct {
	Path string `json:"path"`
	documentInfo
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	loc := storage.LocationDocuments
	if len(args) == 1 {
		var err error
		if loc, err = storage.ParseLocation(args[0]); err != nil {
			return err
		}
	}

	store, err := storage.Open(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	lister, ok := store.(storage.Lister)
	if !ok {
		return fmt.Errorf("storage backend %s cannot list documents", cfg.Storage.Backend)
	}
	paths, err := lister.List(ctx, loc)
	if err != nil {
		return err
	}

	docs := make([]listedDocument, 0, len(paths))
	for _, p := range paths {
		text, err := store.Load(ctx, loc, p)
		if err != nil {
			logger.WithField("path", p).WithError(err).Warn("Skipping unreadable document")
			continue
		}
		info, err := inspectDocument(text)
		if err != nil {
			info = documentInfo{Status: "plain"}
		}
		docs = append(docs, listedDocument{Path: p, documentInfo: info})
	}

	if jsonOutput {
		printJSON(docs)
		return nil
	}

	if len(docs) == 0 {
		printWarning("No documents in %s", loc)
		return nil
	}
	fmt.Printf("📂 %s\n", loc)
	for _, d := range docs {
		switch d.Status {
		case "plain":
			fmt.Printf("   %s\n", d.Path)
		case statusCurrent:
			printSuccess("   %s  %s %s", d.Path, d.Document, d.Version)
		default:
			printWarning("   %s  %s %s (%s)", d.Path, d.Document, d.Version, d.Status)
		}
	}
	return nil
}

// loadStored reads path from a storage location of the configured backend.
func loadStored(ctx context.Context, location, path string) (string, error) {
	loc, err := storage.ParseLocation(location)
	if err != nil {
		return "", err
	}
	store, err := storage.Open(&cfg.Storage, logger)
	if err != nil {
		return "", fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	return store.Load(ctx, loc, path)
}
