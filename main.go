package main

import (
	"context"
	"flag"
	"fmt"
	"helixclips/app/client/clip_downloader"
	"helixclips/app/client/twitch"
	"helixclips/app/http/server"
	"helixclips/app/repository/catalog"
	"helixclips/app/service/archive"
	"helixclips/app/service/clips"
	"helixclips/app/storage"
	"helixclips/pkg/config"
	"helixclips/pkg/otel"
	sentry2 "helixclips/pkg/sentry"
	"helixclips/pkg/tlog"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do"
)

const usage = `usage: helixclips [-config config.yaml] <command> [flags]

commands:
  list     list clips by broadcaster, game or ids
  create   create a clip of a live broadcaster
  sync     mirror configured broadcasters' clips into the catalog
  archive  copy catalog clips into object storage
  serve    run the HTTP API
`

type command func(ctx context.Context, di *do.Injector, args []string) error

var commands = map[string]command{
	"list":    runList,
	"create":  runCreate,
	"sync":    runSync,
	"archive": runArchive,
	"serve":   runServe,
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}

	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err = tlog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	if err = sentry2.Init(cfg); err != nil {
		slog.Error("Sentry initialization failed", slog.Any("error", err))
	}
	defer sentry.Flush(time.Second)

	shutdownTracing, err := otel.Init(appCtx, cfg)
	if err != nil {
		slog.Error("Tracing initialization failed", slog.Any("error", err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	di := do.New()
	do.ProvideValue(di, appCtx)
	do.ProvideValue(di, cfg)
	do.ProvideValue(di, reg)

	do.Provide(di, twitch.NewClient)
	do.Provide(di, clip_downloader.New)
	do.Provide(di, catalog.NewCatalog)
	do.Provide(di, storage.New)
	do.Provide(di, clips.New)
	do.Provide(di, archive.New)
	do.Provide(di, server.New)

	runErr := cmd(appCtx, di, flag.Args()[1:])

	if err = di.Shutdown(); err != nil {
		slog.Error("Shutdown failed", slog.Any("error", err))
	}

	if runErr != nil {
		sentry.CaptureException(runErr)
		sentry.Flush(time.Second)
		log.Fatalf("%s failed: %v", flag.Arg(0), runErr)
	}
}
