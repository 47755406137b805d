package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"carousel/config"
	"carousel/cost"
	"carousel/model"
	"carousel/orchestrator"
	"carousel/provider"
	"carousel/storage"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const Version = "v0.1.0"

// app holds everything a command needs once the config is loaded.
type app struct {
	cfg      *config.Config
	cfgPath  string
	registry *provider.Registry
	db       *storage.DB
	brands   *storage.BrandStore
	posts    *storage.PostStore
	usage    *storage.UsageStore
	progress *storage.ProgressStore
	broker   *storage.Broker
	media    *storage.MediaStore
	calc     *cost.Calculator
}

func (a *app) open() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	config.InitDebugLog(cfg.DataDir())

	a.registry = provider.NewRegistry(cfg)

	a.db, err = storage.Open(cfg.DataDir())
	if err != nil {
		return err
	}
	a.posts = storage.NewPostStore(a.db)
	a.usage = storage.NewUsageStore(a.db)
	a.progress = storage.NewProgressStore(a.db)
	a.broker = storage.NewBroker()

	if a.brands, err = storage.NewBrandStore(cfg.DataDir()); err != nil {
		return err
	}
	if a.media, err = storage.NewMediaStore(cfg.MediaDir(), cfg.Media.PublicURL); err != nil {
		return err
	}

	a.calc = cost.NewCalculator()
	pricing := filepath.Join(config.GetConfigDir(), "pricing.toml")
	if config.FileExists(pricing) {
		if err := a.calc.LoadOverrides(pricing); err != nil {
			return fmt.Errorf("failed to load %s: %w", pricing, err)
		}
	}
	return nil
}

func (a *app) close() {
	if a.registry != nil {
		a.registry.Purge()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) orchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Deps{
		Brands:       a.brands,
		Providers:    a.registry,
		Checker:      a.registry,
		Settings:     a.cfg.GetAISettings(),
		Media:        a.media,
		Progress:     storage.ProgressSink{Store: a.progress, Broker: a.broker},
		Cost:         a.calc,
		Usage:        a.usage,
		Results:      a.posts,
		LockResource: a.posts,
	})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "carousel",
		Short:         "Generate social media carousels with AI agents",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default "+config.GetConfigFilePath()+")")

	root.AddCommand(
		newGenerateCommand(a),
		newValidateCommand(a),
		newModelsCommand(a),
		newProvidersCommand(a),
		newBrandsCommand(a),
		newUsageCommand(a),
		newProviderCommand(a),
	)
	return root
}

func newGenerateCommand(a *app) *cobra.Command {
	var (
		req      orchestrator.Request
		asJSON   bool
		quiet    bool
		postFlag string
	)

	cmd := &cobra.Command{
		Use:   "generate --brand ID --prompt TEXT",
		Short: "Run the carousel pipeline for a brand",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			req.PostID = postFlag
			if req.PostID == "" {
				req.PostID = uuid.New().String()
			}
			if err := a.posts.Ensure(ctx, req.PostID, req.BrandID); err != nil {
				return err
			}
			req.RunID = uuid.New().String()

			out := cmd.OutOrStdout()
			done := make(chan struct{})
			if !quiet && !asJSON {
				updates, cancel := a.broker.Subscribe(req.RunID)
				defer cancel()
				go func() {
					defer close(done)
					for p := range updates {
						fmt.Fprintln(out, renderProgress(p))
					}
				}()
			} else {
				close(done)
			}

			result, err := a.orchestrator().Run(ctx, req)
			if err != nil {
				return err
			}
			waitOrTimeout(done, time.Second)

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintln(out, renderResult(result))
			if !result.Success {
				return errors.New("generation failed")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.BrandID, "brand", "", "brand ID")
	f.StringVar(&postFlag, "post", "", "post ID (a new post is created when empty)")
	f.StringVarP(&req.UserPrompt, "prompt", "p", "", "what the carousel should be about")
	f.StringVar(&req.Platform, "platform", "instagram", "target platform")
	f.StringVar(&req.AspectRatio, "aspect", "1:1", "aspect ratio of the rendered slides (1:1, 4:5, 9:16, 16:9)")
	f.StringSliceVar(&req.ReferenceImages, "ref", nil, "reference image URL (repeatable)")
	f.StringVar(&req.UserID, "user", os.Getenv("USER"), "user ID the media is stored under")
	f.StringVar(&req.ProviderOverride, "provider", "", "force the provider of the text agents")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	f.BoolVarP(&quiet, "quiet", "q", false, "do not print progress")
	cmd.MarkFlagRequired("brand")
	cmd.MarkFlagRequired("prompt")
	return cmd
}

func waitOrTimeout(done <-chan struct{}, d time.Duration) {
	select {
	case <-done:
	case <-time.After(d):
	}
}

func newValidateCommand(a *app) *cobra.Command {
	var override string
	cmd := &cobra.Command{
		Use:   "validate BRAND_ID",
		Short: "Check a brand's AI configuration without generating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brand, err := a.brands.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.orchestrator().Validate(brand, override); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ ")+brand.Name+": configuration is valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&override, "provider", "", "provider override to validate as well")
	return cmd
}

func newModelsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models [PROVIDER...]",
		Short: "List the models of configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args
			if len(ids) == 0 {
				ids = enabledProviders(a.cfg)
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				p, err := a.registry.Provider(id)
				if err != nil {
					fmt.Fprintln(out, errorStyle.Render("✗ "+err.Error()))
					continue
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
				models := p.ListModels(ctx)
				cancel()
				fmt.Fprintln(out, renderModels(id, models))
			}
			return nil
		},
	}
}

func newProvidersCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Show configured providers and whether they are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []providerRow
			for _, t := range provider.KnownProviders {
				id := string(t)
				row := providerRow{ID: id, Capabilities: provider.Capabilities(t)}
				if pc, ok := a.cfg.GetProviderConfig(id); ok {
					row.Configured = true
					row.Enabled = pc.Enabled
				}
				if err := a.registry.Check(id); err != nil {
					row.Problem = err.Error()
				} else if p, err := a.registry.Provider(id); err != nil {
					row.Problem = err.Error()
				} else {
					ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
					row.Available = p.IsAvailable(ctx)
					cancel()
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProviders(rows))
			return nil
		},
	}
}

func newBrandsCommand(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "brands",
		Short: "List stored brands",
		RunE: func(cmd *cobra.Command, args []string) error {
			brands, err := a.brands.Find(search)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBrands(brands))
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter by name or sector")

	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Store a brand from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var brand model.BrandRecord
			if err := json.Unmarshal(data, &brand); err != nil {
				return fmt.Errorf("invalid brand file: %w", err)
			}
			if err := a.brands.Save(&brand); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), brand.ID)
			return nil
		},
	})
	return cmd
}

func newUsageCommand(a *app) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "usage [BRAND_ID]",
		Short: "Show recorded token usage and cost",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if runID != "" {
				rows, err := a.usage.ByRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderUsageRows(rows))
				if p, err := a.progress.Latest(cmd.Context(), runID); err == nil {
					fmt.Fprintln(out, renderProgress(*p))
				}
				return nil
			}
			if len(args) == 0 {
				return errors.New("a brand ID or --run is required")
			}
			totals, err := a.usage.Totals(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderTotals(args[0], totals))
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "show the ledger of one run instead")
	return cmd
}

func newProviderCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Change provider settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set PROVIDER FIELD VALUE",
		Short: "Set apikey, enabled, base_url or default_model of a provider",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := string(provider.MapProviderIDToType(args[0]))
			if !provider.IsKnown(id) {
				if s := provider.SuggestProvider(args[0]); s != "" {
					return fmt.Errorf("unknown provider %q (did you mean %q?)", args[0], s)
				}
				return fmt.Errorf("unknown provider %q", args[0])
			}
			path := a.cfgPath
			if path == "" {
				path = config.GetConfigFilePath()
			}
			if err := a.cfg.UpdateProviderField(path, id, args[1], args[2]); err != nil {
				return err
			}
			a.registry.Purge()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s updated\n", id, args[1])
			return nil
		},
	})
	return cmd
}

func enabledProviders(cfg *config.Config) []string {
	var ids []string
	for _, p := range cfg.Providers {
		if p.Enabled {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// execute runs the CLI with args and closes whatever a opened, whether or
// not the command succeeded.
func execute(a *app, args []string, out io.Writer) error {
	defer a.close()
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(out)
	return root.Execute()
}

func main() {
	if err := execute(&app{}, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
