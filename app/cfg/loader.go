package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"newsgate_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"newsgate_password" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"newsgate" description:"Database name"`

	// Application configuration
	BotsDir           string `long:"bots-dir" env:"BOTS_DIR" default:"./bots" description:"Directory containing bot profile files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"20" description:"Number of concurrent workers per pipeline run"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Generation services
	OpenAIEndpoint string `long:"openai-endpoint" env:"OPENAI_ENDPOINT" default:"https://api.openai.com/v1" description:"OpenAI-compatible API base URL"`
	OpenAIKey      string `long:"openai-key" env:"OPENAI_API_KEY" description:"OpenAI-compatible API key"`
	ChatModel      string `long:"chat-model" env:"CHAT_MODEL" default:"gpt-4o-mini" description:"Model used for article rewriting"`
	EmbeddingModel string `long:"embedding-model" env:"EMBEDDING_MODEL" default:"text-embedding-3-small" description:"Model used for similarity embeddings"`
	ImageModel     string `long:"image-model" env:"IMAGE_MODEL" default:"dall-e-3" description:"Model used for cover image generation"`

	// Object storage
	StorageEndpoint string `long:"storage-endpoint" env:"STORAGE_ENDPOINT" description:"Object storage upload endpoint"`
	StorageKey      string `long:"storage-key" env:"STORAGE_KEY" description:"Object storage access key"`
	StorageBucket   string `long:"storage-bucket" env:"STORAGE_BUCKET" default:"newsgate-images" description:"Object storage bucket name"`

	// Notifications
	TelegramToken  string `long:"telegram-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token for publication notifications"`
	TelegramChatID string `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram chat ID for publication notifications"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"NewsGate/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		BotsDir:           raw.BotsDir,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		OpenAIEndpoint:    raw.OpenAIEndpoint,
		OpenAIKey:         raw.OpenAIKey,
		ChatModel:         raw.ChatModel,
		EmbeddingModel:    raw.EmbeddingModel,
		ImageModel:        raw.ImageModel,
		StorageEndpoint:   raw.StorageEndpoint,
		StorageKey:        raw.StorageKey,
		StorageBucket:     raw.StorageBucket,
		TelegramToken:     raw.TelegramToken,
		TelegramChatID:    raw.TelegramChatID,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
