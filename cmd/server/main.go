//go:build !js && !wasm

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/himanishpuri/AcousticSync/internal/metrics"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/audio"
	"github.com/himanishpuri/AcousticSync/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	address        string
	configPath     string
	tempDir        string
	allowedOrigins string
	syncLocal      string
	syncRemote     string
	payloadLocal   string
	payloadRemote  string
)

func init() {
	flag.StringVar(&address, "addr", "", "HTTP listen address (default from config, else :8080)")
	flag.StringVar(&configPath, "config", getEnvOrDefault("ACOUSTIC_CONFIG", ""), "Path to a YAML session configuration")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("ACOUSTIC_TEMP_DIR", ""), "Temporary directory")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.StringVar(&syncLocal, "sync-local", "", "Local sync signal recording for the live session")
	flag.StringVar(&syncRemote, "sync-remote", "", "Remote sync signal recording for the live session")
	flag.StringVar(&payloadLocal, "payload-local", "", "Local payload recording for the live session")
	flag.StringVar(&payloadRemote, "payload-remote", "", "Remote payload recording for the live session")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig() *acousticsync.FileConfig {
	if configPath == "" {
		fc, err := acousticsync.ParseConfig(nil)
		if err != nil {
			logger.Fatalf("Default configuration invalid: %v", err)
		}
		return fc
	}
	fc, err := acousticsync.LoadConfigFile(configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	return fc
}

func newLogger(fc *acousticsync.FileConfig) (acousticsync.Logger, func()) {
	level, _ := logger.ParseLevel(fc.Logging.Level)
	if fc.Logging.Format == "json" {
		z, err := logger.NewZap(level)
		if err != nil {
			logger.Fatalf("Failed to create zap logger: %v", err)
		}
		return z, func() { _ = z.Sync() }
	}
	base := logger.GetLogger()
	base.SetLevel(level)
	return base, func() {}
}

func main() {
	flag.Parse()

	fc := loadConfig()
	log, flush := newLogger(fc)
	defer flush()

	if address == "" {
		address = fc.HTTP.Address
	}
	if tempDir != "" {
		fc.TempDir = tempDir
	}

	// Parse allowed origins
	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	opts := append(fc.Options(), acousticsync.WithLogger(log), acousticsync.WithObserver(m))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var session *acousticsync.Session
	if syncLocal != "" || syncRemote != "" || payloadLocal != "" || payloadRemote != "" {
		if syncLocal == "" || syncRemote == "" || payloadLocal == "" || payloadRemote == "" {
			logger.Fatalf("A live session needs all of --sync-local, --sync-remote, --payload-local and --payload-remote")
		}
		sources := acousticsync.Sources{
			SyncLocal:     &audio.FileSource{Path: syncLocal, Dir: fc.TempDir},
			SyncRemote:    &audio.FileSource{Path: syncRemote, Dir: fc.TempDir},
			PayloadLocal:  &audio.FileSource{Path: payloadLocal, Dir: fc.TempDir},
			PayloadRemote: &audio.FileSource{Path: payloadRemote, Dir: fc.TempDir},
		}
		s, err := acousticsync.NewSession(sources, opts...)
		if err != nil {
			logger.Fatalf("Failed to create session: %v", err)
		}
		defer s.Close()
		s.Start(ctx)
		session = s
	}

	server := NewServer(session, m, &ServerConfig{
		Address:        address,
		TempDir:        fc.TempDir,
		AllowedOrigins: origins,
		Options:        fc.Options(),
	}, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(reg) }()

	select {
	case err := <-errCh:
		log.Errorf("Server failed: %v", err)
		os.Exit(1)
	case <-ctx.Done():
		log.Infof("Shutting down")
	}
}
