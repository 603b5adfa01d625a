package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"mt_trader/internal/api"
	"mt_trader/internal/auth"
	"mt_trader/internal/broker/motilal"
	"mt_trader/internal/config"
	"mt_trader/internal/copytrade"
	"mt_trader/internal/engine"
	"mt_trader/internal/notify"
	"mt_trader/internal/sessions"
	"mt_trader/internal/store"
	"mt_trader/internal/symbols"
)

func main() {
	// Конфигурация slog для вывода в файл и stdout
	logFile, err := os.OpenFile("web_app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}
	defer logFile.Close()

	// Pretty handler для stdout с цветами
	prettyHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen, // "3:04PM"
		AddSource:  false,
		NoColor:    false,
	})

	// Обычный текстовый handler для файла
	fileHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	// Мультиплексируем логи в оба handler'а
	logger := slog.New(&multiHandler{
		handlers: []slog.Handler{prettyHandler, fileHandler},
	})

	logger.Info("=== Multi-Account Trading Web App ===")

	cfg := config.Load(logger)

	// Документное хранилище: локальный FS, опционально с GitHub-зеркалом
	localStore, err := store.NewFS(cfg.DataDir, logger)
	if err != nil {
		logger.Error("Failed to initialize local store", slog.Any("error", err))
		os.Exit(1)
	}

	var docStore store.DocStore = localStore
	if cfg.GitHubToken != "" && cfg.GitHubRepo != "" {
		remote := store.NewGitHub(cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo, cfg.GitHubBranch, logger)
		docStore = store.NewMirrored(localStore, remote, logger)
	}

	// Поисковый индекс инструментов
	symbolIndex, err := symbols.Open(cfg.SymbolsDB, logger)
	if err != nil {
		logger.Error("Failed to open symbols index", slog.Any("error", err))
		os.Exit(1)
	}
	defer symbolIndex.Close()

	if cfg.SymbolsCSVURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := symbolIndex.Rebuild(ctx, cfg.SymbolsCSVURL); err != nil {
			logger.Warn("⚠️  Symbols index rebuild failed, using existing data", slog.Any("error", err))
		}
		cancel()
	}

	// Реестр сессий поверх брокерской фабрики
	hub := sessions.NewHub(docStore, motilal.NewFactory(cfg.BrokerBaseURL, logger), logger)

	// Auth сервис: токен действителен 24 часа
	authService := auth.NewService(cfg.JWTSecret, 24*time.Hour)

	notifier := notify.New(cfg.TelegramToken, cfg.TelegramChatID, logger)

	events := api.NewEventFeed(logger)

	eng := engine.New(hub, docStore, symbolIndex, events, logger)

	setups := copytrade.NewSetups(docStore, logger)
	resolver := copytrade.NewResolver(setups, hub, cfg.CopyPollInterval, logger)
	defer resolver.Stop()

	apiHandler := api.New(docStore, authService, hub, eng, setups, resolver, symbolIndex, notifier, events, logger)

	router := apiHandler.SetupRouter(cfg.FrontendOrigins)

	// HTTP сервер
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("🚀 Server starting...", slog.String("port", cfg.Port))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("error", err))
	}

	events.Close()

	logger.Info("✅ Server stopped")
}

// multiHandler отправляет логи в несколько handlers одновременно
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range m.handlers {
		if err := h.Handle(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}

	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}

	return &multiHandler{handlers: handlers}
}
