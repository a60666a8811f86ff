package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ivanGusef/guardfeed/internal/backoff"
	"github.com/ivanGusef/guardfeed/internal/config"
	"github.com/ivanGusef/guardfeed/internal/debuglog"
	"github.com/ivanGusef/guardfeed/internal/feed"
	"github.com/ivanGusef/guardfeed/internal/pipeline"
	"github.com/ivanGusef/guardfeed/internal/search"
	"github.com/ivanGusef/guardfeed/internal/storage"
	"github.com/ivanGusef/guardfeed/internal/tui"
	"github.com/ivanGusef/guardfeed/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

type options struct {
	configPath string
	cacheDir   string
	backend    string
	logLevel   string
	itemID     string
	quiet      bool
}

func main() {
	// a missing .env is normal
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "guardfeed",
		Short:        "Browse Guardian headlines page by page",
		Long:         "guardfeed shows a paginated news feed, caching every page it loads so the next start is instant.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to configuration file")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "cache directory (overrides config)")
	flags.StringVar(&opts.backend, "backend", "", "cache backend: file, bolt or sqlite (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug log level (overrides config)")
	flags.StringVar(&opts.itemID, "item", "", "start scrolled to the story with this id")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "skip the startup banner")

	rootCmd.AddCommand(newVersionCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newClearCacheCmd(opts))
	rootCmd.AddCommand(newPagesCmd(opts))

	return rootCmd
}

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if !opts.quiet {
				tui.ShowBanner(out, Version)
			}
			fmt.Fprintf(out, "%s %s\n", tui.AppName, Version)
			fmt.Fprintln(out, "github.com/ivanGusef/guardfeed")
		},
	}
}

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return config.Encode(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("generating config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
			return nil
		},
	})
	return cmd
}

func newClearCacheCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete every cached page and the feed metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := setupLogging(cfg); err != nil {
				return err
			}
			defer debuglog.Close()

			repo, closeCache, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			if err := repo.ClearCaches(cmd.Context()); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s cache at %s\n", cfg.Cache.Backend, cfg.Cache.Location())
			return nil
		},
	}
}

func newPagesCmd(opts *options) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Load pages without the interface and print the rows",
		Long:  "Runs the same session as the interface, requesting pages until --count are loaded or the feed ends, then prints every row.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := setupLogging(cfg); err != nil {
				return err
			}
			defer debuglog.Close()

			repo, closeCache, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session := pipeline.New(repo, pipeline.WithContext(ctx))
			defer session.Close()
			session.Start(opts.itemID)

			return printPages(ctx, cmd.OutOrStdout(), session, count)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of pages to load")
	return cmd
}

func runTUI(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer debuglog.Close()

	repo, closeCache, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	index, err := search.NewIndex()
	if err != nil {
		return fmt.Errorf("creating search index: %w", err)
	}
	defer index.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := pipeline.New(repo, pipeline.WithContext(ctx))
	defer session.Close()

	if !opts.quiet {
		tui.ShowBanner(cmd.OutOrStdout(), Version)
	}

	session.Start(opts.itemID)

	p := tea.NewProgram(tui.NewApp(cfg, session, index), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running interface: %w", err)
	}
	return nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if opts.cacheDir != "" {
		cfg.Cache.Path = validation.ExpandPath(opts.cacheDir)
	}
	if opts.backend != "" {
		cfg.Cache.Backend = opts.backend
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) error {
	if err := debuglog.Setup(debuglog.ParseLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	debuglog.Infof("guardfeed %s source=%s cache=%s:%s", Version, cfg.Source.Kind, cfg.Cache.Backend, cfg.Cache.Location())
	return nil
}

// openRepository wires the cache backend, the transport and the retry
// policy into a feed repository. The returned func closes the backend.
func openRepository(cfg *config.Config) (*feed.Repository, func() error, error) {
	backend, err := storage.Open(cfg.Cache.Backend, cfg.Cache.Location(), cfg.Cache.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("opening cache: %w", err)
	}

	transport, err := feed.NewTransport(cfg)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	policy := backoff.Policy{Unit: cfg.Retry.Unit, Cap: cfg.Retry.Cap}
	repo := feed.NewRepository(transport, storage.NewPageCache(backend), cfg.Source.PageSize, feed.WithPolicy(policy))
	return repo, backend.Close, nil
}
