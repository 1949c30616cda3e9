package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/compliance"
	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/equipment"
	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/refresher"
	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/infrastructure/logging"
	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/infrastructure/repositories/database"
	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/infrastructure/router"
	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/infrastructure/tracing"
	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/presentation/api"
	"github.com/sentinelnexus/equipment-compliance-mgmt/pkg/client"
)

const serviceName string = "equipment-compliance-mgmt"

type flagType int
type flagMap map[flagType]string

const (
	listenAddress flagType = iota
	servicePort

	storeURL
	storeTimeoutSeconds

	dbPath

	refreshIntervalSeconds
	adminSecret

	configurationFile
)

func defaultFlags() flagMap {
	return flagMap{
		listenAddress: "0.0.0.0",
		servicePort:   "8080",

		storeURL:            "",
		storeTimeoutSeconds: "30",

		dbPath: "/opt/sentinelnexus/data/snapshot.db",

		refreshIntervalSeconds: "300",
		adminSecret:            "",

		configurationFile: "/opt/sentinelnexus/config/config.yaml",
	}
}

func main() {
	flags := parseExternalConfig(defaultFlags())

	ctx, logger := logging.NewLogger(context.Background(), serviceName, version())
	logger.Info().Msg("starting up ...")

	tracingCleanup, err := tracing.Init(ctx, serviceName, version())
	exitIf(err, logger, "could not initialize tracing")
	defer tracingCleanup(context.Background())

	if flags[storeURL] == "" {
		exitIf(fmt.Errorf("no store url configured"), logger, "set STORE_URL to the equipment store endpoint")
	}
	if flags[adminSecret] == "" {
		exitIf(fmt.Errorf("no admin secret configured"), logger, "set ADMIN_SECRET to protect the admin routes")
	}

	cfg := loadConfigFile(logger, flags[configurationFile])

	normalizer := compliance.NewCategoryNormalizer(cfg.Categories...)

	storeTimeout := secondsOrDefault(flags[storeTimeoutSeconds], 30)
	store := client.New(flags[storeURL], storeTimeout, normalizer)

	cache, err := database.NewSnapshotRepository(database.NewSQLiteConnector(flags[dbPath]))
	exitIf(err, logger, "could not open snapshot cache database")

	svc := equipment.New(store, cache)

	if _, err := svc.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial refresh failed, will keep retrying in the background")
	}

	refreshInterval := secondsOrDefault(flags[refreshIntervalSeconds], 300)
	if cfg.RefreshIntervalSeconds > 0 {
		refreshInterval = time.Duration(cfg.RefreshIntervalSeconds) * time.Second
	}

	guard := &refresher.Guard{}

	worker := refresher.New(svc, guard, refreshInterval, logger)
	worker.Start()
	defer worker.Stop()

	r := router.New(serviceName)
	api.RegisterHandlers(r, svc, guard, flags[adminSecret], logger)

	apiAddress := fmt.Sprintf("%s:%s", flags[listenAddress], flags[servicePort])
	logger.Info().Str("address", apiAddress).Msg("starting to listen for connections")

	server := &http.Server{Addr: apiAddress, Handler: r}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to listen for connections")
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info().Msg("shutting down ...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func parseExternalConfig(flags flagMap) flagMap {
	// optional local overrides for development
	_ = godotenv.Load()

	envOrDef := func(name, def string) string {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			return value
		}
		return def
	}

	flags[listenAddress] = envOrDef("LISTEN_ADDRESS", flags[listenAddress])
	flags[servicePort] = envOrDef("SERVICE_PORT", flags[servicePort])

	flags[storeURL] = envOrDef("STORE_URL", flags[storeURL])
	flags[storeTimeoutSeconds] = envOrDef("STORE_TIMEOUT_SECONDS", flags[storeTimeoutSeconds])

	flags[dbPath] = envOrDef("SNAPSHOT_DB_PATH", flags[dbPath])

	flags[refreshIntervalSeconds] = envOrDef("REFRESH_INTERVAL_SECONDS", flags[refreshIntervalSeconds])
	flags[adminSecret] = envOrDef("ADMIN_SECRET", flags[adminSecret])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	flag.Func("store-url", "URL of the spreadsheet-backed equipment store", apply(storeURL))
	flag.Func("db-path", "path to the local snapshot cache database", apply(dbPath))
	flag.Func("config", "path to the service configuration file", apply(configurationFile))
	flag.Parse()

	return flags
}

func loadConfigFile(logger zerolog.Logger, path string) *equipment.Config {
	file, err := os.Open(path)
	if err != nil {
		logger.Warn().Err(err).Msg("no configuration file, using built-in defaults")
		return &equipment.Config{}
	}
	defer file.Close()

	cfg, err := equipment.LoadConfiguration(file)
	exitIf(err, logger, "could not parse configuration file")

	return cfg
}

func secondsOrDefault(value string, def int) time.Duration {
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		seconds = def
	}
	return time.Duration(seconds) * time.Second
}

func version() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	infoMap := map[string]string{}
	for _, s := range buildInfo.Settings {
		infoMap[s.Key] = s.Value
	}

	sha := infoMap["vcs.revision"]
	if infoMap["vcs.modified"] == "true" {
		sha += "+"
	}

	if sha == "" {
		sha = "unknown"
	}

	return sha
}

func exitIf(err error, logger zerolog.Logger, msg string) {
	if err != nil {
		logger.Fatal().Err(err).Msg(msg)
	}
}
