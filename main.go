package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nijaru/yt-mp3/config"
	"github.com/nijaru/yt-mp3/db"
	"github.com/nijaru/yt-mp3/extractor"
	"github.com/nijaru/yt-mp3/handlers"
	"github.com/nijaru/yt-mp3/logger"
	"github.com/nijaru/yt-mp3/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.LoadConfig()

	if err := config.ValidateConfig(cfg); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	logFile, err := logger.Setup(logger.Options{
		Dir:    cfg.LogDir,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logger")
	}
	defer closeQuietly(logFile, "log file")

	ytdlp := extractor.NewYtDlp(
		extractor.WithYtDlpPath(cfg.Extractor.YtDlpPath),
		extractor.WithAudioQuality(cfg.Extractor.AudioQuality),
	)

	var metadata extractor.MetadataProvider = ytdlp
	if cfg.Extractor.MetadataProvider == config.ProviderOEmbed {
		metadata = extractor.NewOEmbed(extractor.DefaultOEmbedEndpoint, &http.Client{Timeout: cfg.Extractor.InfoTimeout})
	}

	var gatewayOpts []handlers.GatewayOption
	var serverOpts []handlers.ServerOption

	if cfg.History.Enabled {
		store, err := db.Open(cfg.History.DBPath)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize database")
		}
		defer closeQuietly(store, "database")

		gatewayOpts = append(gatewayOpts, handlers.WithRecorder(store))
		serverOpts = append(serverOpts, handlers.WithHistory(store))
	}

	if cfg.Archive.Enabled {
		archive, err := storage.NewSpacesArchive(context.Background(), storage.SpacesConfig{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			Bucket:    cfg.Archive.Bucket,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
		})
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize archive storage")
		}
		gatewayOpts = append(gatewayOpts, handlers.WithArchiver(archive))
	}

	gateway := handlers.NewGateway(metadata, ytdlp, handlers.GatewayConfig{
		TempDir:        cfg.TempDir,
		InfoTimeout:    cfg.Extractor.InfoTimeout,
		ConvertTimeout: cfg.Extractor.ConvertTimeout,
		MaxAudioBytes:  cfg.Extractor.MaxAudioBytes,
	}, gatewayOpts...)

	server := handlers.NewServer(cfg, gateway, serverOpts...)

	logrus.WithFields(logrus.Fields{
		"version":  cfg.Version,
		"provider": cfg.Extractor.MetadataProvider,
		"history":  cfg.History.Enabled,
		"archive":  cfg.Archive.Enabled,
	}).Info("Configuration loaded")

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
	case err := <-errCh:
		logrus.WithError(err).Error("Server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server shutdown error")
	}
}

func closeQuietly(c io.Closer, name string) {
	if err := c.Close(); err != nil {
		logrus.WithError(err).Errorf("Failed to close %s", name)
	}
}
