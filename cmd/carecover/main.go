package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/carecover/carecover/internal/api"
	"github.com/carecover/carecover/internal/emergency"
	"github.com/carecover/carecover/internal/followup"
	"github.com/carecover/carecover/internal/genai"
	"github.com/carecover/carecover/internal/location"
	"github.com/carecover/carecover/internal/messaging"
	"github.com/carecover/carecover/internal/store"
	"github.com/carecover/carecover/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for CareCover state data
	DefaultStateDir = "/var/lib/carecover"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "carecover.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	followUps := followup.NewService(st, followup.WithNotifier(buildNotifier(flags)))
	detector := emergency.NewDetector(location.AreaNames())

	apiOpts := buildAPIOptions(flags, st, followUps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping CareCover with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	server := api.NewServer(st, followUps, detector, apiOpts...)
	if err := server.Run(ctx); err != nil {
		slog.Error("CareCover failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("CareCover exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL     string
	StateDir        string
	OpenAIKey       string
	APIAddr         string
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
	DerivedSeverity bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir        *string
	dbDSN           *string
	openaiKey       *string
	apiAddr         *string
	twilioFrom      *string
	derivedSeverity *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StateDir:        os.Getenv("CARECOVER_STATE_DIR"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		APIAddr:         os.Getenv("API_ADDR"),
		TwilioSID:       os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:      os.Getenv("TWILIO_FROM_NUMBER"),
		DerivedSeverity: util.ParseBoolEnv("CARECOVER_DERIVED_SEVERITY", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CARECOVER_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CARECOVER_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"TWILIO_CONFIGURED", config.TwilioSID != "" && config.TwilioToken != "",
		"CARECOVER_DERIVED_SEVERITY", config.DerivedSeverity)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:        flag.String("state-dir", config.StateDir, "state directory for CareCover data (overrides $CARECOVER_STATE_DIR)"),
		dbDSN:           flag.String("db-dsn", config.DatabaseURL, "database DSN, SQLite path or PostgreSQL URL (overrides $DATABASE_URL)"),
		openaiKey:       flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:         flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		twilioFrom:      flag.String("twilio-from", config.TwilioFrom, "Twilio sender number for follow-up messages (overrides $TWILIO_FROM_NUMBER)"),
		derivedSeverity: flag.Bool("derived-severity", config.DerivedSeverity, "derive initial emergency severity from reported symptoms (overrides $CARECOVER_DERIVED_SEVERITY)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"twilioFromSet", *flags.twilioFrom != "",
		"derivedSeverity", *flags.derivedSeverity)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStore selects the storage backend from the DSN.
func buildStore(flags Flags) (store.Store, error) {
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildNotifier wires Twilio delivery for follow-ups when credentials are
// configured, and falls back to log-only delivery otherwise. Sessions keyed
// by an E.164 phone number are messaged directly.
func buildNotifier(flags Flags) followup.Notifier {
	notifier, err := messaging.NewTwilioNotifier(
		messaging.WithFrom(*flags.twilioFrom),
		messaging.WithPhoneResolver(func(sessionID string) (string, bool) {
			if strings.HasPrefix(sessionID, "+") {
				return sessionID, true
			}
			return "", false
		}),
	)
	if err != nil {
		slog.Info("Twilio not configured, follow-ups will be logged only", "reason", err)
		return messaging.NewLogNotifier()
	}
	slog.Info("Twilio messaging configured for follow-ups")
	return notifier
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, st store.Store, followUps *followup.Service) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.openaiKey != "" {
		client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			slog.Warn("Failed to initialize chat model, continuing without it", "error", err)
		} else {
			apiOpts = append(apiOpts, api.WithGenAI(client))
		}
	}
	if *flags.derivedSeverity {
		flow := emergency.NewFlow(st,
			emergency.WithScheduler(followUps),
			emergency.WithDerivedSeverity())
		apiOpts = append(apiOpts, api.WithFlow(flow))
	}
	return apiOpts
}
