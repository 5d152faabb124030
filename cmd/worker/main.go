package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/pubscope/pubscope/internal/config"
	"github.com/pubscope/pubscope/internal/graph"
	graphneo4j "github.com/pubscope/pubscope/internal/graph/neo4j"
	"github.com/pubscope/pubscope/internal/observability"
	"github.com/pubscope/pubscope/internal/secrets"
	"github.com/pubscope/pubscope/internal/server"
	temporalmod "github.com/pubscope/pubscope/internal/temporal"
)

func main() {
	configPath := "configs/pubscope.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	setupLogging(cfg.Log)

	ctx := context.Background()

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:  "pubscope-worker",
		Environment:  cfg.Tracing.Environment,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	audit, err := observability.NewAuditLogger(nil)
	if err != nil {
		log.Fatalf("audit: %v", err)
	}

	sec, err := secrets.NewManager(cfg.Secrets)
	if err != nil {
		log.Fatalf("secrets: %v", err)
	}

	// The graph repository is optional: without it the worker still
	// analyzes file datasets. Credentials in config win over the
	// secrets backend.
	var repo graph.Repository
	if cfg.Graph.URI != "" {
		user := cfg.Graph.Username
		if user == "" {
			user = sec.GetOrDefault(ctx, secrets.KeyGraphUsername, "neo4j")
		}
		pass := cfg.Graph.Password
		if pass == "" {
			pass = sec.GetOrDefault(ctx, secrets.KeyGraphPassword, "")
		}
		r, err := graphneo4j.New(ctx, cfg.Graph.URI, user, pass)
		if err != nil {
			log.Fatalf("neo4j: %v", err)
		}
		repo = r
	}

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Repo:     repo,
		Analysis: cfg.Analysis,
		Audit:    audit,
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	metrics := observability.NewMetricsRegistry()
	metrics.NewGauge("pubscope_worker_up", "Worker liveness.", nil).Set(1)

	g := server.NewGracefulServer(
		&server.HealthConfig{Version: "0.1.0", Metrics: metrics},
		server.DefaultShutdownConfig(),
	)
	g.Health.RegisterCheck("temporal", server.TemporalHealthChecker(func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
		return err
	}))
	var graphCheck func(ctx context.Context) error
	if repo != nil {
		graphCheck = func(ctx context.Context) error {
			_, err := repo.ListDatasets(ctx)
			return err
		}
	}
	g.Health.RegisterCheck("graphdb", server.GraphDBHealthChecker(graphCheck))

	g.Shutdown.Register(server.TemporalWorkerShutdownHook(func() {
		w.Stop()
		c.Close()
	}))
	if repo != nil {
		g.Shutdown.Register(server.GraphDBShutdownHook(repo.Close))
	}
	g.Shutdown.Register(server.TracingShutdownHook(tp.Shutdown))

	if err := g.Start(":8080"); err != nil {
		log.Fatalf("server: %v", err)
	}

	slog.Info("worker started",
		"task_queue", cfg.Temporal.TaskQueue,
		"namespace", cfg.Temporal.Namespace,
		"graphdb", repo != nil,
	)

	g.Wait()
	slog.Info("worker stopped", "uptime", time.Since(start))
}

var start = time.Now()

func setupLogging(cfg config.LogConfig) {
	var lvl slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}
