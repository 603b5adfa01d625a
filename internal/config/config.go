package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port      string
	JWTSecret string

	DataDir       string // корень локального документного хранилища
	SymbolsDB     string // sqlite база поискового индекса
	SymbolsCSVURL string // CSV со списком инструментов (опционально)

	BrokerBaseURL string

	// GitHub-зеркало документного хранилища (опционально)
	GitHubToken  string
	GitHubOwner  string
	GitHubRepo   string
	GitHubBranch string

	FrontendOrigins []string

	// Telegram-уведомления об итогах fanout (опционально)
	TelegramToken  string
	TelegramChatID string

	CopyPollInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения
func Load(logger *slog.Logger) *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "default-secret-change-me-in-production" // В продакшене использовать настоящий секрет!

		logger.Warn("⚠️  JWT_SECRET not set, using default (insecure!)")
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	symbolsDB := os.Getenv("SYMBOLS_DB")
	if symbolsDB == "" {
		symbolsDB = "./symbols.db"
	}

	var origins []string
	for _, origin := range strings.Split(os.Getenv("FRONTEND_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	pollInterval := 5 * time.Second
	if raw := os.Getenv("COPY_POLL_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			pollInterval = d
		} else {
			logger.Warn("⚠️  Invalid COPY_POLL_INTERVAL, using default", slog.String("value", raw))
		}
	}

	if os.Getenv("GITHUB_TOKEN") != "" && os.Getenv("GITHUB_REPO") != "" {
		logger.Info("🔗 GitHub store mirror enabled", slog.String("repo", os.Getenv("GITHUB_REPO")))
	}

	return &Config{
		Port:             port,
		JWTSecret:        jwtSecret,
		DataDir:          dataDir,
		SymbolsDB:        symbolsDB,
		SymbolsCSVURL:    os.Getenv("SYMBOLS_CSV_URL"),
		BrokerBaseURL:    os.Getenv("BROKER_BASE_URL"),
		GitHubToken:      os.Getenv("GITHUB_TOKEN"),
		GitHubOwner:      os.Getenv("GITHUB_OWNER"),
		GitHubRepo:       os.Getenv("GITHUB_REPO"),
		GitHubBranch:     os.Getenv("GITHUB_BRANCH"),
		FrontendOrigins:  origins,
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		CopyPollInterval: pollInterval,
	}
}
