package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/haukened/dnsq/internal/dns/common/clock"
	"github.com/haukened/dnsq/internal/dns/common/log"
	"github.com/haukened/dnsq/internal/dns/config"
	"github.com/haukened/dnsq/internal/dns/gateways/upstream"
	"github.com/haukened/dnsq/internal/dns/gateways/wire"
	"github.com/haukened/dnsq/internal/dns/report"
	"github.com/haukened/dnsq/internal/dns/services/resolver"
)

const (
	version = "0.1.0-dev"
	appName = "dnsq"

	exitOK      = 0
	exitFailure = 1
)

// Application holds the components needed for one query.
type Application struct {
	config   *config.AppConfig
	resolver *resolver.Resolver
	renderer report.Renderer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process plumbing, so it can be driven from tests.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR\t%v\n", err)
		return exitFailure
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(stderr, "Logging configuration error: %v\n", err)
		return exitFailure
	}
	defer log.Sync()

	log.Debug(map[string]any{
		"app":         appName,
		"version":     version,
		"env":         cfg.Env,
		"server":      cfg.Server,
		"port":        cfg.Port,
		"type":        cfg.RecordType,
		"timeout":     cfg.TimeoutDuration(),
		"max_retries": cfg.MaxRetries,
	}, "Starting query")

	app, err := buildApplication(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR\t%v\n", err)
		return exitFailure
	}

	rep := app.Run(ctx)
	if err := app.renderer.Render(stdout, rep); err != nil {
		fmt.Fprintf(stderr, "ERROR\tfailed to write output: %v\n", err)
		return exitFailure
	}
	if rep.Failed() {
		return exitFailure
	}
	return exitOK
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()

	codec := wire.NewUDPCodec(logger)

	client, err := upstream.NewClient(upstream.Options{
		Timeout:    cfg.TimeoutDuration(),
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream client: %w", err)
	}

	renderer, err := report.New(cfg.Format)
	if err != nil {
		return nil, err
	}

	return &Application{
		config: cfg,
		resolver: resolver.NewResolver(resolver.ResolverOptions{
			Codec:    codec,
			Upstream: client,
			Clock:    clock.RealClock{},
			Logger:   logger,
		}),
		renderer: renderer,
	}, nil
}

// Run performs the configured query and returns everything needed to render it.
func (app *Application) Run(ctx context.Context) report.Report {
	req := resolver.Request{
		Server: app.config.Server,
		Port:   app.config.Port,
		Name:   app.config.Domain,
		Type:   app.config.QueryType(),
	}
	result, err := app.resolver.Resolve(ctx, req)
	return report.Report{Request: req, Result: result, Err: err}
}
