package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/corahq/cora-onboarding/internal/api"
	"github.com/corahq/cora-onboarding/internal/completion"
	"github.com/corahq/cora-onboarding/internal/flow"
	"github.com/corahq/cora-onboarding/internal/genai"
	"github.com/corahq/cora-onboarding/internal/notify"
	"github.com/corahq/cora-onboarding/internal/store"
	"github.com/corahq/cora-onboarding/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Cora Onboarding state data
	DefaultStateDir = "/var/lib/cora-onboarding"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "cora-onboarding.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Build module dependencies
	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	configureTagStrategy(flags)

	submitter := completion.NewSubmitter(st, buildCompletionOptions(flags, config)...)
	server := api.NewServer(st, submitter, buildAPIOptions(flags)...)

	slog.Info("Bootstrapping Cora Onboarding with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr,
		"strategy", *flags.strategy,
		"profile_endpoint_set", *flags.profileEndpoint != "")
	if err := server.Run(); err != nil {
		slog.Error("Cora Onboarding failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Cora Onboarding exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL     string
	StateDir        string
	OpenAIKey       string
	APIAddr         string
	Strategy        string
	ProfileEndpoint string
	DashboardURL    string
	ProfileTimeout  time.Duration
	CookieName      string
	CookieValue     string
	NotifyEnabled   bool
	NotifyTo        string
}

// Flags holds command line flag values
type Flags struct {
	stateDir        *string
	dbDSN           *string
	openaiKey       *string
	apiAddr         *string
	strategy        *string
	profileEndpoint *string
	dashboardURL    *string
	profileTimeout  *time.Duration
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
		StateDir:        os.Getenv("CORA_STATE_DIR"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		APIAddr:         os.Getenv("API_ADDR"),
		Strategy:        os.Getenv("PROMPT_STRATEGY"),
		ProfileEndpoint: os.Getenv("PROFILE_ENDPOINT"),
		DashboardURL:    os.Getenv("DASHBOARD_URL"),
		ProfileTimeout:  util.ParseDurationEnv("PROFILE_TIMEOUT", completion.DefaultRequestTimeout),
		CookieName:      os.Getenv("SESSION_COOKIE_NAME"),
		CookieValue:     os.Getenv("SESSION_COOKIE_VALUE"),
		NotifyEnabled:   util.ParseBoolEnv("NOTIFY_ENABLED", false),
		NotifyTo:        os.Getenv("NOTIFY_TO"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CORA_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("CORA_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	if config.Strategy == "" {
		config.Strategy = flow.StrategyLinear
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CORA_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"PROMPT_STRATEGY", config.Strategy,
		"PROFILE_ENDPOINT_SET", config.ProfileEndpoint != "",
		"DASHBOARD_URL", config.DashboardURL,
		"NOTIFY_ENABLED", config.NotifyEnabled)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:        flag.String("state-dir", config.StateDir, "state directory for Cora Onboarding data (overrides $CORA_STATE_DIR)"),
		dbDSN:           flag.String("db-dsn", config.DatabaseURL, "database DSN for the snapshot store (overrides $DATABASE_URL)"),
		openaiKey:       flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for the tag strategy (overrides $OPENAI_API_KEY)"),
		apiAddr:         flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		strategy:        flag.String("strategy", config.Strategy, "prompt strategy: linear or tags (overrides $PROMPT_STRATEGY)"),
		profileEndpoint: flag.String("profile-endpoint", config.ProfileEndpoint, "business profile creation endpoint (overrides $PROFILE_ENDPOINT)"),
		dashboardURL:    flag.String("dashboard-url", config.DashboardURL, "post-onboarding redirect target (overrides $DASHBOARD_URL)"),
		profileTimeout:  flag.Duration("profile-timeout", config.ProfileTimeout, "timeout for the profile POST (overrides $PROFILE_TIMEOUT)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"strategy", *flags.strategy,
		"profileEndpoint_set", *flags.profileEndpoint != "",
		"dashboardURL", *flags.dashboardURL,
		"profileTimeout", *flags.profileTimeout)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// buildStore constructs the snapshot store from the DSN, choosing the backend
// by DSN shape.
func buildStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// configureTagStrategy wires the chat-completion client into the tag strategy
// when it is selected. The linear strategy needs no client.
func configureTagStrategy(flags Flags) {
	if *flags.strategy != flow.StrategyTags {
		return
	}
	client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
	if err != nil {
		slog.Error("Tag strategy selected but GenAI client unavailable, falling back to linear", "error", err)
		*flags.strategy = flow.StrategyLinear
		return
	}
	if ts, ok := flow.Get(flow.StrategyTags); ok {
		if tagStrategy, ok := ts.(*flow.TagStrategy); ok {
			tagStrategy.SetClient(client)
			slog.Debug("Tag strategy configured with GenAI client")
		}
	}
}

// buildCompletionOptions constructs completion submitter configuration options
func buildCompletionOptions(flags Flags, config Config) []completion.Option {
	var opts []completion.Option
	if *flags.profileEndpoint != "" {
		opts = append(opts, completion.WithProfileEndpoint(*flags.profileEndpoint))
	}
	if *flags.dashboardURL != "" {
		opts = append(opts, completion.WithDashboardURL(*flags.dashboardURL))
	}
	if *flags.profileTimeout > 0 {
		opts = append(opts, completion.WithRequestTimeout(*flags.profileTimeout))
	}
	if config.CookieName != "" {
		opts = append(opts, completion.WithSessionCookie(config.CookieName, config.CookieValue))
	}
	if config.NotifyEnabled {
		sender, err := notify.NewClient()
		if err != nil {
			slog.Warn("Notifications enabled but Twilio client unavailable", "error", err)
		} else if config.NotifyTo == "" {
			slog.Warn("Notifications enabled but NOTIFY_TO not set")
		} else {
			opts = append(opts, completion.WithNotifier(sender, config.NotifyTo))
		}
	}
	return opts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.strategy != "" {
		opts = append(opts, api.WithStrategy(*flags.strategy))
	}
	return opts
}
