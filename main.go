package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zelak312/tweenarr/engine"
	"github.com/Zelak312/tweenarr/flow"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	// cli arguments
	configPath := flag.String("config_path", "./config.yml", "Path to the config yml file")
	flag.Parse()

	config, err := GetConfig(*configPath)
	if err != nil {
		log.Panic(err)
	}

	err = InitLogFile(config.LogPath)
	if err != nil {
		log.Panic(err)
	}

	mainLogger := mustLogger("main")
	mainLogger.WithFields(StructFields(config)).Debug("Loaded config")

	sqlite, err := NewSqlite(config.DatabasePath)
	if err != nil {
		mainLogger.Panic(err)
	}
	defer sqlite.Close()

	err = sqlite.RunMigrations()
	if err != nil {
		mainLogger.Panic(err)
	}

	estimator, err := flow.NewEstimator(config.FlowBackend, mustLogger("flow"))
	if err != nil {
		mainLogger.Panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	processor := engine.NewProcessor(estimator, mustLogger("engine"))
	processor.Start(ctx)
	defer processor.Stop()

	session := NewSession(processor, mustLogger("session"))
	err = session.SetParams(config.DefaultParams.Params())
	if err != nil {
		mainLogger.Panic(err)
	}

	hub := NewHub(mustLogger("hub"))
	go hub.Run(ctx)

	relay := NewRelay(mustLogger("relay"), processor, session, hub, sqlite, config.PollInterval)
	go relay.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	server := &Server{
		config:   config,
		logger:   mustLogger("http"),
		session:  session,
		relay:    relay,
		hub:      hub,
		sqlite:   sqlite,
		exporter: NewExporter(config.ExportFolder, config.FFmpegBinary, config.DefaultFPS, mustLogger("export")),
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.BindAddress, config.Port),
		Handler: NewRouter(server),
	}

	go func() {
		mainLogger.Info("Listening on ", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.Error("Http server stopped: ", err)
			stop()
		}
	}()

	<-ctx.Done()
	mainLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		mainLogger.Warn("Http server shutdown: ", err)
	}
}

func mustLogger(name string) *log.Entry {
	logger, err := CreateLogger(name)
	if err != nil {
		log.Panic(err)
	}
	return logger
}
