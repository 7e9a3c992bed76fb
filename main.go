package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	box "github.com/Delta456/box-cli-maker/v2"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gatepost/gatepost/pkg/handler"
	"github.com/gatepost/gatepost/pkg/metrics"
)

func main() {
	var opts struct {
		Version       bool   `short:"v" long:"version" description:"Display the current version of gatepost"`
		Debug         *bool  `short:"d" long:"debug" description:"Shows debugging information"`
		Check         bool   `short:"C" long:"check" description:"Validate the configuration and exit"`
		NoCompression *bool  `short:"u" long:"no-compression" description:"Disable compression for responses served"`
		Config        string `short:"c" long:"config" description:"Specify custom path to 'gatepost.yaml'" default:"gatepost.yaml"`
	}

	_, err := flags.Parse(&opts)
	if err != nil {
		if !flags.WroteHelp(err) {
			panic(err)
		}
		os.Exit(0)
	}

	if opts.Version {
		fmt.Printf("0.1.0\n")
		os.Exit(0)
	}

	if opts.Debug != nil && *opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	// The initial read decides --check and whether the metrics listener
	// starts; the authoritative install goes through app.Reload so startup
	// and hot reload share one path.
	config, err := handler.LoadConfiguration(opts.Config)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if opts.Check {
		if _, err := handler.BuildTable(config); err != nil {
			log.WithError(err).Fatal("configuration is not valid")
		}
		fmt.Println("configuration OK")
		os.Exit(0)
	}

	var m *metrics.Metrics
	if config.Metrics.Enabled {
		m = metrics.New()
	}

	app := handler.NewApp(opts.Config, m)
	if err := app.Reload(); err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	table := app.Store().Current()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reload on SIGHUP and on config file changes; both run the same state
	// machine and a failed reload keeps the old table serving.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := app.Reload(); err != nil {
				log.WithError(err).Error("got an error during configuration reload")
			} else {
				log.Info("successfully reloaded configuration")
			}
		}
	}()

	if watcher, err := handler.NewWatcher(opts.Config, app.Reload); err != nil {
		log.WithError(err).Warn("configuration file watching disabled")
	} else {
		go watcher.Run(ctx)
	}

	if m != nil {
		metricsAddr := fmt.Sprintf(":%d", config.Metrics.Port)
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			log.WithField("addr", metricsAddr).Info("metrics listener starting")
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.WithError(err).Error("metrics listener failed")
			}
		}()
	}

	router := chi.NewRouter()
	if opts.Debug != nil && *opts.Debug {
		router.Use(middleware.Logger)
	}
	if opts.NoCompression == nil || !*opts.NoCompression {
		router.Use(middleware.Compress(5))
	}

	app.Handler().AttachRoutes(router)

	bx := box.New(box.Config{Px: 4, Py: 1})
	bx.Println("Serving!", fmt.Sprintf("- Local:       http://%s", table.Addr()))

	server := http.Server{
		Addr:    table.Addr(),
		Handler: router,
	}

	log.Fatal(server.ListenAndServe())
}
