package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"admuse/internal/campaign"
	"admuse/internal/config"
	"admuse/internal/llm"
	"admuse/internal/logging"
	"admuse/internal/portrait"
	"admuse/internal/store"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "admuse",
	Short: "admuse - campaign persona studio",
	Long: `admuse generates synthetic audience personas for marketing campaigns.

Given an offering description it asks a text-generation collaborator for a
set of personas, normalizes their demographics, and produces a portrait for
each one through an image-generation collaborator with bounded retries.

Persona state survives restarts via a local SQLite mirror.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if workspace == "" {
			workspace, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to resolve workspace: %w", err)
			}
		}
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("debug logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// pipeline bundles everything a command needs to act on persona slots.
type pipeline struct {
	cfg    *config.Config
	store  *store.PersonaStore
	mirror *store.SQLiteMirror
	orch   *campaign.Orchestrator
}

// buildPipeline wires config, storage, collaborator clients, and the
// orchestrator. requireKey guards commands that call the text collaborator.
func buildPipeline(requireKey bool) (*pipeline, error) {
	if configPath == "" {
		configPath = filepath.Join(workspace, ".admuse", "config.yaml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Storage.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workspace, dbPath)
	}
	mirror, err := store.NewSQLiteMirror(dbPath, cfg.Storage.Namespace)
	if err != nil {
		return nil, err
	}

	personaStore := store.NewPersonaStore(mirror)
	if err := personaStore.Restore(cmdContext()); err != nil {
		mirror.Close()
		return nil, err
	}

	var client llm.Client
	if cfg.LLM.APIKey != "" {
		gemini, err := llm.NewGeminiClientWithConfig(llm.GeminiConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: config.ParseDuration(cfg.LLM.Timeout, 60*time.Second),
		})
		if err != nil {
			mirror.Close()
			return nil, err
		}
		client = gemini
	} else if requireKey {
		mirror.Close()
		return nil, fmt.Errorf("no API key configured; set GEMINI_API_KEY or llm.api_key in %s", configPath)
	}

	styles := portrait.NewHTTPStyleProviderWithConfig(portrait.StyleProviderConfig{
		BaseURL: cfg.Styles.BaseURL,
		Timeout: config.ParseDuration(cfg.Styles.Timeout, 30*time.Second),
	})
	generator := portrait.NewHTTPGeneratorWithConfig(portrait.GeneratorConfig{
		BaseURL:    cfg.Portraits.BaseURL,
		Resolution: cfg.Portraits.Resolution,
		Timeout:    config.ParseDuration(cfg.Portraits.AttemptTimeout, 15*time.Second),
	})

	rng := campaign.NewLockedRand(time.Now().UnixNano())
	slots := portrait.NewSlotGenerator(styles, generator, rng, portrait.SlotGeneratorConfig{
		RetryBudget:    cfg.Portraits.RetryBudget,
		RetryDelay:     config.ParseDuration(cfg.Portraits.RetryDelay, 2*time.Second),
		AttemptTimeout: config.ParseDuration(cfg.Portraits.AttemptTimeout, 15*time.Second),
	})

	orch := campaign.NewOrchestrator(campaign.OrchestratorConfig{
		Store:            personaStore,
		PersonaGenerator: llm.NewPersonaGenerator(client),
		SlotGenerator:    slots,
		Rand:             rng,
		Concurrency:      cfg.Batch.Concurrency,
	})

	return &pipeline{cfg: cfg, store: personaStore, mirror: mirror, orch: orch}, nil
}

func (p *pipeline) close() {
	if p.mirror != nil {
		p.mirror.Close()
	}
}

// watchEvents drains orchestrator progress events to stdout until the
// returned stop func is called.
func watchEvents(orch *campaign.Orchestrator) func() {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev := <-orch.Events():
				switch ev.Type {
				case campaign.EventSlotRemoved:
					fmt.Printf("slot %d: removed\n", ev.Index)
				case campaign.EventTextRegenerated:
					fmt.Printf("slot %d: new persona %q\n", ev.Index, ev.Message)
				case campaign.EventSlotSucceeded:
					fmt.Printf("slot %d: portrait ready\n", ev.Index)
				case campaign.EventSlotExhausted:
					fmt.Printf("slot %d: portrait failed (%s)\n", ev.Index, ev.Message)
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// cmdContext returns a context cancelled on SIGINT/SIGTERM.
func cmdContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: cwd)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(regenerateCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(windowCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
