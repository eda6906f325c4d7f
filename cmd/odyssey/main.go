package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pharmacy/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/app"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/catalog"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/observability"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/procurement"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
	"github.com/odyssey-erp/odyssey-pharmacy/jobs"
	"github.com/odyssey-erp/odyssey-pharmacy/report"
)

const usage = `usage: odyssey [command]

commands:
  serve                      run the HTTP API (default)
  preview [-json] <script>   replay a draft edit script against the sample catalog
  dispatch [-json] <po>      re-enqueue supplier dispatch of a sent purchase order
  queue [-json]              print dispatch queue statistics
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		os.Exit(serve(ctx))
	case "preview":
		os.Exit(runPreview(ctx, args))
	case "dispatch", "queue":
		os.Exit(runQueueCommand(ctx, command, args))
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runPreview(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "print JSON")
	currency := fs.String("currency", "IDR", "ISO 4217 currency code")
	locale := fs.String("locale", "id-ID", "BCP 47 locale")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	formatter, err := catalog.NewMoneyFormatter(*currency, *locale)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preview: %v\n", err)
		return 1
	}
	file, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "preview: %v\n", err)
		return 1
	}
	defer func() {
		_ = file.Close()
	}()
	return cli.PreviewCommand(ctx, file, catalog.SampleProvider(), cli.PreviewOptions{
		JSONOutput: *jsonOutput,
		Formatter:  formatter,
	})
}

func runQueueCommand(ctx context.Context, command string, args []string) int {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: load config: %v\n", command, err)
		return 1
	}
	ops, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		return 1
	}
	defer func() {
		_ = ops.Close()
	}()
	out := cli.CommandOutput{JSONOutput: *jsonOutput}
	if command == "queue" {
		return cli.QueueCommand(ctx, ops, out)
	}
	if fs.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	return cli.DispatchCommand(ctx, ops, fs.Arg(0), out)
}

func serve(ctx context.Context) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("redis unavailable, drafts kept in memory", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	provider := app.NewCatalogProvider(cfg, dbpool, redisClient, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	procurementRepo := procurement.NewRepository(dbpool)
	procurementService := procurement.NewService(
		procurementRepo,
		app.NewDraftStore(cfg, redisClient),
		provider,
		auditLogger,
		jobClient,
		metrics,
		logger,
		app.BuilderOptions(cfg)...,
	)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	formatter, err := catalog.NewMoneyFormatter(cfg.Currency, cfg.Locale)
	if err != nil {
		logger.Error("init money formatter", slog.Any("error", err))
		return 1
	}
	poRenderer, err := report.NewPurchaseOrderRenderer(formatter)
	if err != nil {
		logger.Error("parse purchase order template", slog.Any("error", err))
		return 1
	}
	reportHandler := report.NewHandler(report.NewGotenbergClient(cfg.GotenbergURL), procurementService, provider, poRenderer, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		CatalogHandler:     catalog.NewHandler(logger, provider),
		ProcurementHandler: procurementHandler,
		ReportHandler:      reportHandler,
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server", slog.Any("error", err))
			return 1
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return 1
	}
	return 0
}
