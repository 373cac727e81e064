// Command codelens indexes a codebase into a persistent vector
// collection and retrieves the chunks most similar to a query. It can
// run as an HTTP API, as an MCP server on stdio, or as a one-shot CLI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/embedder"
	"github.com/codelens/codelens/internal/indexer"
	"github.com/codelens/codelens/internal/mcp"
	"github.com/codelens/codelens/internal/server"
	"github.com/codelens/codelens/internal/service"
	"github.com/codelens/codelens/internal/store"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `codelens %s

Usage:
  codelens [-config path] <command> [arguments]

Commands:
  serve          start the HTTP API server
  mcp            start the MCP server on stdio
  index <path>   index a directory
  search <text>  search the indexed collection
  stats          show collection statistics

Flags:
  -config path   YAML config file (defaults apply when omitted)
  -db path       override the database path
  -debug         enable debug logging
  --version      print version and build information
`, version)
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("codelens\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", store.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", store.DriverName)
		os.Exit(0)
	}

	flags := flag.NewFlagSet("codelens", flag.ExitOnError)
	configPath := flags.String("config", "", "path to YAML config file")
	dbPath := flags.String("db", "", "override the database path")
	debug := flags.Bool("debug", false, "enable debug logging")
	flags.Usage = usage
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "codelens: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Storage.DatabasePath = *dbPath
	}
	if *debug {
		cfg.Debug = true
	}

	var runErr error
	switch args[0] {
	case "serve":
		runErr = runServe(cfg)
	case "mcp":
		runErr = runMCP(cfg)
	case "index":
		runErr = runIndex(cfg, args[1:])
	case "search":
		runErr = runSearch(cfg, args[1:])
	case "stats":
		runErr = runStats(cfg)
	default:
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "codelens: %v\n", runErr)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildService assembles provider, store, and service from config.
func buildService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service.Service, error) {
	provider, err := embedder.New(ctx, embedder.Config{
		Provider:  cfg.Embedding.Provider,
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		CacheSize: cfg.Embedding.CacheSize,
		Timeout:   cfg.Embedding.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding provider: %w", err)
	}
	logger.Info("embedding provider selected", zap.String("provider", provider.Name()))

	vs, err := store.Open(cfg.Storage.DatabasePath,
		cfg.Storage.CollectionName, cfg.Storage.CollectionDescription)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	return service.New(provider, vs, logger), nil
}

func runServe(cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, err := buildService(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	srv := server.NewServer(svc, cfg, logger)

	errChan := make(chan error, 1)
	go func() { errChan <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func runMCP(cfg *config.Config) error {
	// stdout is reserved for the MCP protocol; zap writes to stderr.
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, err := buildService(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("MCP server ready, listening on stdio",
		zap.String("version", version),
		zap.String("build_mode", store.BuildMode))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return mcp.NewServer(svc, cfg, logger).Serve(ctx)
}

func runIndex(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("index", flag.ExitOnError)
	workers := flags.Int("workers", cfg.Indexing.Workers, "concurrent file workers (0 = NumCPU)")
	_ = flags.Parse(args)
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: codelens index <path>")
	}
	root := flags.Arg(0)

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, err := buildService(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	progress := newProgress(term.IsTerminal(int(os.Stderr.Fd())))
	report, err := svc.Index(ctx, root, &indexer.Config{
		Workers:      *workers,
		EmbedTimeout: cfg.Indexing.EmbedTimeout,
		Progress:     progress.update,
	})
	progress.finish()
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d files into %d chunks (%s)\n",
		len(report.IndexedFiles), report.TotalChunks, report.Duration.Round(time.Millisecond))
	fmt.Printf("Collection size: %d records\n", report.CollectionSize)
	if len(report.Failures) > 0 {
		fmt.Printf("Failures: %d\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Printf("  [%s] %s: %v\n", f.Kind, f.Path, f.Err)
		}
	}
	return nil
}

func runSearch(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("search", flag.ExitOnError)
	k := flags.Int("k", cfg.Search.DefaultLimit, "number of results")
	asJSON := flags.Bool("json", false, "print results as JSON")
	_ = flags.Parse(args)
	if flags.NArg() == 0 {
		return fmt.Errorf("usage: codelens search <query>")
	}
	query := strings.Join(flags.Args(), " ")

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, err := buildService(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	results, err := svc.Search(context.Background(), query, *k)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, res := range results {
		fmt.Printf("%d. %s (distance %.4f)\n", i+1, res.Metadata["file_path"], res.Distance)
		for _, line := range strings.Split(res.Content, "\n") {
			fmt.Printf("   %s\n", line)
		}
		fmt.Println()
	}
	return nil
}

func runStats(cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, err := buildService(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	stats, err := svc.Stats(context.Background())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// progress renders an indexing progress bar on stderr when attached to
// a terminal. The bar is created on the first callback, once the file
// total is known; the indexer serializes callbacks.
type progress struct {
	enabled bool
	bar     *progressbar.ProgressBar
}

func newProgress(enabled bool) *progress {
	return &progress{enabled: enabled}
}

func (p *progress) update(done, total int, path string) {
	if !p.enabled || total <= 0 {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("indexing"),
			progressbar.OptionSetWidth(32),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	_ = p.bar.Set(done)
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
