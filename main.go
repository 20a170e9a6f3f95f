package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/SkynetLabs/bootstrapper/api"
	"github.com/SkynetLabs/bootstrapper/bootstrap"
	dbsconfig "github.com/SkynetLabs/bootstrapper/config"
	"github.com/SkynetLabs/bootstrapper/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/SkynetLabs/skyd/build"
)

type (
	// config contains the configuration for the service which is parsed
	// from the environment vars and the command line.
	config struct {
		LogLevel    logrus.Level
		DBURI       string
		DBUser      string
		DBPassword  string
		ConfigPath  string
		OrderSecret string
		MenuSecret  string
		DryRun      bool
		Listen      string
		Retries     int
	}
)

const (
	// envAPIShutdownTimeout is the timeout for gracefully shutting down the
	// API before killing it.
	envAPIShutdownTimeout = 20 * time.Second

	// envConfigPath is the environment variable for the path of the file
	// declaring the logical databases.
	envConfigPath = "BOOTSTRAP_CONFIG"

	// envConnectRetries is the environment variable for the number of times
	// we retry connecting to the store.
	envConnectRetries = "BOOTSTRAP_CONNECT_RETRIES"

	// envListen is the environment variable for the address the status API
	// listens on.
	envListen = "BOOTSTRAP_LISTEN"

	// envLogLevel is the environment variable for the log level used by
	// this service.
	envLogLevel = "BOOTSTRAP_LOG_LEVEL"

	// envMenuSecret is the environment variable for the password of the menu
	// service. Only used without a config file.
	envMenuSecret = "MENU_DB_PASSWORD"

	// envMongoDBURI is the environment variable for the mongodb URI.
	envMongoDBURI = "MONGODB_URI"

	// envMongoDBUser is the environment variable for the mongodb user.
	envMongoDBUser = "MONGODB_USER"

	// envMongoDBPassword is the environment variable for the mongodb password.
	envMongoDBPassword = "MONGODB_PASSWORD"

	// envOrderSecret is the environment variable for the password of the
	// order service. Only used without a config file.
	envOrderSecret = "ORDERS_DB_PASSWORD"
)

var (
	// connectRetryInterval is the time we wait between attempts to connect
	// to the store.
	connectRetryInterval = build.Select(build.Var{
		Standard: 5 * time.Second,
		Dev:      time.Second,
		Testing:  10 * time.Millisecond,
	}).(time.Duration)
)

// parseConfig parses a config struct from the environment. Flags given in
// args take precedence.
func parseConfig(args []string) (*config, error) {
	// Create config with default vars.
	cfg := &config{
		LogLevel: logrus.InfoLevel,
		Retries:  3,
	}

	// Parse custom vars from environment.
	var ok bool
	var err error

	logLevelStr, ok := os.LookupEnv(envLogLevel)
	if ok {
		cfg.LogLevel, err = logrus.ParseLevel(logLevelStr)
		if err != nil {
			return nil, errors.AddContext(err, "failed to parse log level")
		}
	}
	retriesStr, ok := os.LookupEnv(envConnectRetries)
	if ok {
		cfg.Retries, err = strconv.Atoi(retriesStr)
		if err != nil {
			return nil, errors.AddContext(err, fmt.Sprintf("failed to parse %s", envConnectRetries))
		}
	}
	cfg.ConfigPath = os.Getenv(envConfigPath)
	cfg.Listen = os.Getenv(envListen)

	fs := pflag.NewFlagSet("bootstrapper", pflag.ContinueOnError)
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "YAML file declaring the logical databases")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "validate the configuration without connecting to the store")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "keep serving the status API on this address after the run")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "number of times to retry connecting to the store")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries can't be negative, got %d", cfg.Retries)
	}

	// Without a config file we bootstrap the default databases whose
	// secrets come from the environment.
	if cfg.ConfigPath == "" {
		cfg.OrderSecret, ok = os.LookupEnv(envOrderSecret)
		if !ok {
			return nil, fmt.Errorf("%s wasn't specified", envOrderSecret)
		}
		cfg.MenuSecret, ok = os.LookupEnv(envMenuSecret)
		if !ok {
			return nil, fmt.Errorf("%s wasn't specified", envMenuSecret)
		}
	}
	if cfg.DryRun {
		return cfg, nil
	}
	cfg.DBURI, ok = os.LookupEnv(envMongoDBURI)
	if !ok {
		return nil, fmt.Errorf("%s wasn't specified", envMongoDBURI)
	}
	cfg.DBUser, ok = os.LookupEnv(envMongoDBUser)
	if !ok {
		return nil, fmt.Errorf("%s wasn't specified", envMongoDBUser)
	}
	cfg.DBPassword, ok = os.LookupEnv(envMongoDBPassword)
	if !ok {
		return nil, fmt.Errorf("%s wasn't specified", envMongoDBPassword)
	}
	return cfg, nil
}

// loadDatabases returns the logical databases to bootstrap.
func loadDatabases(cfg *config) ([]bootstrap.LogicalDatabase, error) {
	if cfg.ConfigPath == "" {
		return bootstrap.DefaultConfiguration(cfg.OrderSecret, cfg.MenuSecret), nil
	}
	return dbsconfig.Load(cfg.ConfigPath)
}

// connect connects to the store. Connection errors are retried up to
// cfg.Retries times.
func connect(ctx context.Context, log *logrus.Entry, cfg *config) (*database.DB, error) {
	for attempt := 0; ; attempt++ {
		db, err := database.New(ctx, log, cfg.DBURI, cfg.DBUser, cfg.DBPassword)
		if err == nil {
			return db, nil
		}
		if !errors.Contains(err, bootstrap.ErrConnection) || attempt >= cfg.Retries {
			return nil, err
		}
		log.WithError(err).Warnf("Failed to connect to database, retrying in %v (%d/%d)", connectRetryInterval, attempt+1, cfg.Retries)
		select {
		case <-ctx.Done():
			return nil, errors.Compose(bootstrap.ErrConnection, ctx.Err())
		case <-time.After(connectRetryInterval):
		}
	}
}

// writeReport writes the report to w and returns its exit code.
func writeReport(log *logrus.Logger, w io.Writer, report bootstrap.Report) int {
	if _, err := report.WriteTo(w); err != nil {
		log.WithError(err).Error("Failed to write report")
	}
	return report.ExitCode()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run runs the bootstrap with the given command line, writes the report to w
// and returns the exit code of the process.
func run(args []string, w io.Writer) int {
	logger := logrus.New()

	// Create application context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Parse env vars.
	cfg, err := parseConfig(args)
	if err != nil {
		logger.WithError(err).Error("Failed to parse config")
		return bootstrap.ExitConfiguration
	}

	// Create the loggers for the submodules.
	logger.SetLevel(cfg.LogLevel)
	apiLogger := logger.WithField("modules", "api")
	dbLogger := logger.WithField("modules", "db")
	bootstrapLogger := logger.WithField("modules", "bootstrap")

	dbs, err := loadDatabases(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to load logical databases")
		return bootstrap.ExitCode(err)
	}

	// Validate everything before the store is touched. Without a single
	// valid database there is nothing to connect for.
	check := bootstrap.Check(dbs)
	if cfg.DryRun || len(check.Failed()) == len(check.Results) {
		return writeReport(logger, w, check)
	}

	// Connect to the store. It's released on every path below.
	db, err := connect(ctx, dbLogger, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		return writeReport(logger, w, check.FailRemaining(bootstrap.StepDatabase, err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Error("Failed to close database gracefully")
		}
	}()

	reg := prometheus.NewRegistry()
	runner := bootstrap.NewRunner(db, bootstrapLogger, bootstrap.NewMetrics(reg))
	report := runner.Run(ctx, dbs)
	code := writeReport(logger, w, report)
	if cfg.Listen == "" {
		return code
	}

	// Create API.
	a, err := api.New(apiLogger, db, runner, reg, dbs, report, cfg.Listen)
	if err != nil {
		logger.WithError(err).Error("Failed to init API")
		return bootstrap.ExitUnknown
	}

	// Register handler for shutdown.
	var wg sync.WaitGroup
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-sigChan

		// Log that we are shutting down.
		logger.Info("Caught stop signal. Shutting down...")

		// Shut down API with sane timeout.
		shutdownCtx, cancel := context.WithTimeout(ctx, envAPIShutdownTimeout)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shut down api")
		}
	}()

	// Start serving API.
	logger.WithField("address", a.Address()).Info("Serving status API")
	err = a.ListenAndServe()
	if err != nil && !errors.Contains(err, http.ErrServerClosed) {
		logger.WithError(err).Error("ListenAndServe returned an error")
	}

	// Unblock the shutdown handler in case we stopped without a signal.
	signal.Stop(sigChan)
	close(sigChan)

	// Wait for the goroutine to finish before continuing with the remaining
	// shutdown procedures.
	wg.Wait()
	return a.Report().ExitCode()
}
