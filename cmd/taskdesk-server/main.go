package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	server "github.com/kazz187/taskdesk/internal"
	"github.com/kazz187/taskdesk/internal/apiclient"
	"github.com/kazz187/taskdesk/internal/client"
	clientrepo "github.com/kazz187/taskdesk/internal/client/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/event"
	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/msgtemplate"
	"github.com/kazz187/taskdesk/internal/notification"
	"github.com/kazz187/taskdesk/internal/product"
	productrepo "github.com/kazz187/taskdesk/internal/product/repositoryimpl"
	pushsubrepo "github.com/kazz187/taskdesk/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/settings"
	settingsrepo "github.com/kazz187/taskdesk/internal/settings/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/status"
	statusrepo "github.com/kazz187/taskdesk/internal/status/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/task"
	taskrepo "github.com/kazz187/taskdesk/internal/task/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/user"
	userrepo "github.com/kazz187/taskdesk/internal/user/repositoryimpl"
	"github.com/kazz187/taskdesk/pkg/clog"
	"github.com/kazz187/taskdesk/pkg/storage"
)

type repositories struct {
	tasks    task.Repository
	statuses status.Repository
	clients  client.Repository
	products product.Repository
	users    user.Repository
	settings settings.Repository
}

func newStorage(env *config.StorageEnv) (storage.Storage, func(), error) {
	switch env.Type {
	case "s3":
		s, err := storage.NewS3Storage(context.Background(), env.S3Bucket, env.S3Prefix, env.S3Region)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		return s, func() {}, nil
	case "sqlite":
		s, err := storage.NewSQLiteStorage(env.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create SQLite storage: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Error("failed to close SQLite storage", "error", err)
			}
		}, nil
	default:
		s, err := storage.NewLocalStorage(env.BaseDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		return s, func() {}, nil
	}
}

// newRepositories keeps domain data in store, or in the agency REST backend
// when BACKEND_TYPE is remote. The remote session lives in SESSION_DIR.
func newRepositories(env *config.Env, store storage.Storage) (*repositories, error) {
	if env.BackendEnv.Type != "remote" {
		return &repositories{
			tasks:    taskrepo.NewYAMLRepository(store),
			statuses: statusrepo.NewYAMLRepository(store),
			clients:  clientrepo.NewYAMLRepository(store),
			products: productrepo.NewYAMLRepository(store),
			users:    userrepo.NewYAMLRepository(store),
			settings: settingsrepo.NewYAMLRepository(store),
		}, nil
	}
	sessionStore, err := storage.NewLocalStorage(env.BackendEnv.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open session dir: %w", err)
	}
	api := apiclient.New(env.BackendEnv.URL, &http.Client{Timeout: env.BackendEnv.Timeout}, apiclient.NewTokenStore(sessionStore))
	return &repositories{
		tasks:    apiclient.NewTaskRepository(api),
		statuses: apiclient.NewStatusRepository(api),
		clients:  apiclient.NewClientRepository(api),
		products: apiclient.NewProductRepository(api),
		users:    apiclient.NewUserRepository(api),
		settings: apiclient.NewSettingsRepository(api),
	}, nil
}

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, closeStore, err := newStorage(config.StorageEnvFromEnv(env))
	if err != nil {
		slog.Error("failed to setup storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	repos, err := newRepositories(env, store)
	if err != nil {
		slog.Error("failed to setup repositories", "error", err)
		os.Exit(1)
	}
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)

	// Status catalog
	catalogOpts := []status.CatalogOption{
		status.WithHoldStatus(env.CatalogEnv.HoldStatusID),
		status.WithHasCommentsStatus(env.CatalogEnv.HasCommentsStatusID),
	}
	if env.BackendEnv.Type != "remote" {
		if err := status.EnsureDefaults(ctx, repos.statuses); err != nil {
			slog.Error("failed to seed status catalog", "error", err)
			os.Exit(1)
		}
	}
	if path := env.CatalogEnv.File; path != "" {
		n, err := status.ApplyFile(ctx, repos.statuses, path)
		if err != nil {
			slog.Error("failed to apply status catalog file", "path", path, "error", err)
			os.Exit(1)
		}
		slog.Info("applied status catalog file", "path", path, "applied", n)
		go func() {
			if err := status.WatchFile(ctx, repos.statuses, path); err != nil {
				slog.Error("status catalog watcher stopped", "error", err)
			}
		}()
	}

	bus := eventbus.New()
	templates := msgtemplate.NewEngine(repos.settings)

	// Notifications
	notificationEnv := config.NotificationEnvFromEnv(env)
	sendClient := &http.Client{Timeout: notificationEnv.SendTimeout}
	dispatcherOpts := []notification.Option{
		notification.WithSendTimeout(notificationEnv.SendTimeout),
		notification.WithCatalogOptions(catalogOpts...),
		notification.WithPush(notification.NewPushSender(notificationEnv, pushSubRepo, sendClient)),
	}
	if notificationEnv.TelegramToken != "" {
		tg, err := notification.NewTelegramSender(notificationEnv.TelegramToken, "", sendClient)
		if err != nil {
			slog.Error("failed to setup telegram", "error", err)
			os.Exit(1)
		}
		dispatcherOpts = append(dispatcherOpts, notification.WithTelegram(tg))
	}
	dispatcher := notification.NewDispatcher(
		bus,
		repos.tasks,
		repos.statuses,
		repos.clients,
		repos.settings,
		templates,
		notification.NewWhatsAppSender(notificationEnv.CallMeBotURL, sendClient),
		dispatcherOpts...,
	)

	engine := task.NewEngine(repos.tasks, repos.statuses, store, bus,
		task.WithCatalogOptions(catalogOpts...),
		task.WithAttachmentPatterns(env.AttachmentEnv.PatternList()...),
		task.WithMaxAttachmentSize(env.AttachmentEnv.MaxSize),
	)

	srv := server.NewServer(
		env,
		status.NewServer(repos.statuses, catalogOpts...),
		task.NewServer(engine),
		msgtemplate.NewServer(templates),
		notification.NewServer(notificationEnv, pushSubRepo, dispatcher),
		settings.NewServer(repos.settings, bus),
		client.NewServer(repos.clients),
		product.NewServer(repos.products),
		user.NewServer(repos.users),
		event.NewServer(bus),
	)

	go dispatcher.Start(ctx)

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after stream contexts are cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
