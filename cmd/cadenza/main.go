// Command cadenza runs the orchestration engine: an HTTP+JSON API by
// default, or an MCP stdio server exposing the registered skills as tools.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cadenza-ai/cadenza/pkg/builtin"
	"github.com/cadenza-ai/cadenza/pkg/config"
	"github.com/cadenza-ai/cadenza/pkg/httpapi"
	"github.com/cadenza-ai/cadenza/pkg/llm"
	cadenzamcp "github.com/cadenza-ai/cadenza/pkg/mcp"
	"github.com/cadenza-ai/cadenza/pkg/orchestrator"
	"github.com/cadenza-ai/cadenza/pkg/search"
	"github.com/cadenza-ai/cadenza/pkg/search/qdrant"
	"github.com/cadenza-ai/cadenza/pkg/session"
	"github.com/cadenza-ai/cadenza/pkg/skill"
	"github.com/cadenza-ai/cadenza/pkg/telemetry"
	"github.com/cadenza-ai/cadenza/pkg/template"
)

var version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "serve"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "cadenza: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	switch command {
	case "serve":
		return serve(ctx, cfg)
	case "mcp":
		return serveMCP(ctx, cfg)
	case "version":
		fmt.Println(version)
		return nil
	default:
		return fmt.Errorf("unknown command %q (expected serve, mcp, or version)", command)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	shutdown, err := telemetry.InitWithConfig("cadenza", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	orch, cleanup, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.New(orch, version).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server.listening", slog.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("server.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// serveMCP speaks the MCP protocol on stdin/stdout. Telemetry exporters stay
// off here: the stdout exporter would corrupt the protocol stream.
func serveMCP(ctx context.Context, cfg *config.Config) error {
	orch, cleanup, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return cadenzamcp.NewServer("cadenza", version, orch.Skills()).ServeStdio()
}

// buildOrchestrator wires registries, builtin skills and templates, and the
// configured collaborators. The returned cleanup closes owned resources.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	engine, err := buildSearchEngine(ctx, cfg.Search)
	if err != nil {
		return nil, nil, fmt.Errorf("search engine: %w", err)
	}

	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = sql.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		closers = append(closers, func() { db.Close() })
	}

	var provider llm.Provider
	if cfg.LLM.BaseURL != "" {
		provider = llm.NewOllama(cfg.LLM.BaseURL)
	}

	skills := skill.NewRegistry()
	templates := template.NewRegistry(skills)
	deps := builtin.Deps{
		Engine:   engine,
		Provider: provider,
		Model:    cfg.LLM.Model,
		DB:       db,
	}
	if err := builtin.Register(skills, templates, deps); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("register builtins: %w", err)
	}

	if cfg.Templates.Dir != "" {
		loaded, err := template.LoadDir(cfg.Templates.Dir)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("load templates: %w", err)
		}
		for _, t := range loaded {
			if err := templates.Register(t); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("register template %s: %w", t.ID, err)
			}
		}
		slog.Info("templates.loaded", slog.String("dir", cfg.Templates.Dir), slog.Int("count", len(loaded)))
	}

	opts := []orchestrator.Option{
		orchestrator.WithSessionManager(session.NewManager()),
	}
	if engine != nil {
		opts = append(opts, orchestrator.WithSearchEngine(engine))
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		slog.Warn("metrics disabled", slog.String("error", err.Error()))
	} else {
		opts = append(opts, orchestrator.WithMetrics(metrics))
	}

	if cfg.Audit.Enabled {
		store, err := buildAuditStore(cfg.Audit)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("audit store: %w", err)
		}
		if closer, ok := store.(interface{ Close() error }); ok {
			closers = append(closers, func() { closer.Close() })
		}
		opts = append(opts, orchestrator.WithAuditStore(store))
	}

	return orchestrator.New(skills, templates, opts...), cleanup, nil
}

func buildSearchEngine(ctx context.Context, cfg config.SearchConfig) (search.Engine, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Provider {
	case "", "inmemory":
		return search.NewInMemoryEngine(), nil
	case "qdrant":
		var embedder search.Embedder
		switch cfg.EmbedderProvider {
		case "ollama":
			embedder = search.NewOllamaEmbedder(cfg.EmbedderBaseURL, cfg.EmbedderModel)
		default:
			embedder = search.NewHashEmbedder(int(cfg.VectorSize))
		}
		engine, err := qdrant.New(cfg.QdrantAddr, cfg.QdrantCollection, embedder, cfg.VectorSize)
		if err != nil {
			return nil, err
		}
		if err := engine.EnsureCollection(ctx); err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Provider)
	}
}

func buildAuditStore(cfg config.AuditConfig) (orchestrator.AuditStore, error) {
	if cfg.DSN == "" {
		return orchestrator.NewMemoryAuditStore(), nil
	}
	return orchestrator.OpenSQLiteAuditStore(cfg.DSN)
}
