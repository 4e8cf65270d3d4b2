package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/host"
	"github.com/TheMichaelB/overlaycfg/internal/hotkey"
	"github.com/TheMichaelB/overlaycfg/internal/loadout"
	"github.com/TheMichaelB/overlaycfg/internal/models"
	"github.com/TheMichaelB/overlaycfg/internal/notices"
	"github.com/TheMichaelB/overlaycfg/internal/preferences"
	"github.com/TheMichaelB/overlaycfg/internal/storage"
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Load preferences and loadout the way the overlay does at startup",
	Long: `Boot initializes both configuration stores from storage, falling back
to defaults on any load failure, and prints the resulting notices. With a
host URL the metric catalog is fetched and the overlay specification
pushed to the host.`,
	Example: `  overlaycfg boot
  overlaycfg boot --host ws://127.0.0.1:7090/rpc
  overlaycfg boot --target dwm.exe --json`,
	Args: cobra.NoArgs,
	RunE: runBoot,
}

var (
	bootHost   string
	bootTarget string
)

func init() {
	rootCmd.AddCommand(bootCmd)

	bootCmd.Flags().StringVar(&bootHost, "host", "",
		"Host websocket URL (overrides host.url)")
	bootCmd.Flags().StringVar(&bootTarget, "target", "",
		"Process name to check against the target block list")
}

func runBoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()
	ctx = events.WithSession(events.WithLogger(ctx, logger), uuid.NewString())
	log := events.FromContext(ctx)

	if bootHost != "" {
		cfg.Host.URL = bootHost
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	docs, err := storage.Open(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer docs.Close()

	// Host connection is optional
	var bridge host.Host
	if cfg.Host.URL != "" {
		client := host.NewWSClient(&cfg.Host, logger)
		if err := client.Connect(ctx); err != nil {
			return err
		}
		defer client.Close()
		bridge = client
	}

	queue := notices.NewQueue()
	notifier := notices.Multi{queue, notices.NewLogNotifier(logger)}

	hotkeys := hotkey.NewRegistry(bridge, notifier, logger)
	loadoutStore := loadout.NewStore(loadout.Deps{
		Storage: docs,
		Notices: notifier,
		Logger:  logger,
	}, &cfg.Persistence)
	defer loadoutStore.Close()

	prefsStore := preferences.NewStore(preferences.Deps{
		Loadout: loadoutStore,
		Hotkeys: hotkeys,
		Host:    bridge,
		Storage: docs,
		Notices: notifier,
		Logger:  logger,
	}, &cfg.Persistence)
	defer prefsStore.Close()

	if bridge != nil {
		if _, err := prefsStore.RefreshCatalog(ctx); err != nil {
			log.WithError(err).Warn("Metric catalog unavailable")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return prefsStore.Init(gctx) })
	g.Go(func() error { return loadoutStore.Init(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	prefs := prefsStore.Preferences()
	if prefs.SelectedPreset != nil && *prefs.SelectedPreset != models.PresetCustom {
		loadoutStore.LoadPreset(ctx, *prefs.SelectedPreset)
	}

	blocklist := storage.LoadBlocklist(ctx, docs, cfg.Dev.UseDebugBlocklist, logger)
	blocked := bootTarget != "" && prefs.EnableTargetBlocklist && blocklist.IsBlocked(bootTarget)

	pushed := false
	if bridge != nil {
		if err := prefsStore.ValidateAdapter(ctx); err != nil {
			log.WithError(err).Warn("Adapter check failed")
		}
		if err := prefsStore.PushSpecification(ctx); err != nil {
			return err
		}
		pushed = true
	}

	log.WithFields(map[string]interface{}{
		"widgets":   len(loadoutStore.Widgets()),
		"blocklist": blocklist.Len(),
		"pushed":    pushed,
	}).Info("Boot complete")

	return reportBoot(prefsStore, loadoutStore, blocklist, queue.Drain(), pushed, blocked)
}

func reportBoot(prefs *preferences.Store, lo *loadout.Store, blocklist *storage.Blocklist, raised []notices.Notice, pushed, blocked bool) error {
	p := prefs.Preferences()
	preset := "none"
	if p.SelectedPreset != nil {
		preset = p.SelectedPreset.String()
	}
	prefsStatus := prefs.Status()
	loadoutStatus := lo.Status()
	widgets := lo.Widgets()

	if jsonOutput {
		texts := make([]map[string]interface{}, 0, len(raised))
		for _, n := range raised {
			texts = append(texts, map[string]interface{}{"text": n.Text, "terminal": n.Terminal})
		}
		out := map[string]interface{}{
			"preferences": prefsStatus.Outcome.String(),
			"loadout":     loadoutStatus.Outcome.String(),
			"preset":      preset,
			"widgets":     len(widgets),
			"blocklist":   blocklist.Names(),
			"pushed":      pushed,
			"notices":     texts,
		}
		if bootTarget != "" {
			out["target"] = bootTarget
			out["target_blocked"] = blocked
		}
		printJSON(out)
		return nil
	}

	fmt.Printf("⚙️  Preferences: %s (preset %s)\n", prefsStatus.Outcome, preset)
	fmt.Printf("🧩 Loadout:     %s (%d widgets)\n", loadoutStatus.Outcome, len(widgets))
	fmt.Printf("🚫 Block list:  %d entries\n", blocklist.Len())
	if bootTarget != "" {
		if blocked {
			printWarning("   %s is blocked from auto-targeting", bootTarget)
		} else {
			fmt.Printf("   %s may be targeted\n", bootTarget)
		}
	}

	for _, n := range raised {
		printWarning("⚠️  %s", n.Text)
	}
	if pushed {
		printSuccess("✅ Specification pushed to host")
	}
	return nil
}
