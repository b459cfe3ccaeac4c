package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY" required:"true"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".taskdesk/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"taskdesk/"`
	S3Region string `envconfig:"S3_REGION" default:"me-south-1"`
	// SQLite settings (used when Type == "sqlite")
	SQLitePath string `envconfig:"SQLITE_PATH" default:".taskdesk/taskdesk.db"`
}

// BackendEnv selects where tasks, statuses, clients and settings live: "local"
// keeps them as YAML documents in Storage, "remote" talks to the agency REST API.
type BackendEnv struct {
	Type       string        `envconfig:"BACKEND_TYPE" default:"local"`
	URL        string        `envconfig:"BACKEND_URL" default:"http://localhost:8000"`
	Timeout    time.Duration `envconfig:"BACKEND_TIMEOUT" default:"30s"`
	SessionDir string        `envconfig:"SESSION_DIR" default:".taskdesk/session"`
}

type NotificationEnv struct {
	CallMeBotURL    string        `envconfig:"CALLMEBOT_URL" default:"https://api.callmebot.com/whatsapp.php"`
	SendTimeout     time.Duration `envconfig:"NOTIFICATION_SEND_TIMEOUT" default:"10s"`
	TelegramToken   string        `envconfig:"TELEGRAM_TOKEN"`
	VAPIDPublicKey  string        `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string        `envconfig:"VAPID_CONTACT" default:"mailto:admin@example.com"`
}

type CatalogEnv struct {
	File                string `envconfig:"STATUS_CATALOG_FILE"`
	HoldStatusID        string `envconfig:"HOLD_STATUS_ID" default:"on_hold"`
	HasCommentsStatusID string `envconfig:"HAS_COMMENTS_STATUS_ID" default:"has_comments"`
}

// AttachmentEnv limits what can be uploaded to a task. Patterns holds
// doublestar globs separated by ";".
type AttachmentEnv struct {
	Patterns string `envconfig:"ATTACHMENT_PATTERNS" default:"*.{jpg,jpeg,png,pdf,docx}"`
	MaxSize  int64  `envconfig:"ATTACHMENT_MAX_SIZE" default:"10485760"`
}

func (e *AttachmentEnv) PatternList() []string {
	var out []string
	for _, p := range strings.Split(e.Patterns, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type Env struct {
	BaseEnv
	StorageEnv
	BackendEnv
	NotificationEnv
	CatalogEnv
	AttachmentEnv
}

// ClientEnv is the configuration of the taskdesk CLI. It does not need an API key
// of its own; it authenticates against the REST backend with a stored session.
type ClientEnv struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
	BackendEnv
	NotificationEnv
	CatalogEnv
}

const namespace = "TASKDESK"

// loadDotEnv reads .env into the process environment when the file exists.
// Variables already set are left untouched.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func LoadEnv() (*Env, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func LoadClientEnv() (*ClientEnv, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	var env ClientEnv
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	return parseLevel(e.LogLevel, slog.LevelDebug)
}

func (e *ClientEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelWarn
	}
	return parseLevel(e.LogLevel, slog.LevelWarn)
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return fallback
	}
	return level
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func NotificationEnvFromEnv(env *Env) *NotificationEnv {
	return &env.NotificationEnv
}
