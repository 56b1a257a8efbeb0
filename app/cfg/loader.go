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
	// Storage configuration
	SQLitePath string `long:"sqlite-path" env:"SQLITE_PATH" default:"./data/worldbrief.db" description:"Path to the sqlite database file"`
	ConfigDir  string `long:"config-dir" env:"CONFIG_DIR" default:"./config" description:"Directory containing sources.yaml and categories.yaml"`
	OutputDir  string `long:"output-dir" env:"OUTPUT_DIR" default:"./output" description:"Directory for generated audio files"`

	// LLM configuration
	LLMAPIKey      string `long:"llm-api-key" env:"LLM_API_KEY" description:"API key for the OpenAI-compatible endpoint (required)" required:"true"`
	LLMBaseURL     string `long:"llm-base-url" env:"LLM_BASE_URL" description:"Base URL of the OpenAI-compatible endpoint"`
	LLMModel       string `long:"llm-model" env:"LLM_MODEL" default:"gpt-4o-mini" description:"Default model for all tasks"`
	ClassifyModel  string `long:"classify-model" env:"CLASSIFY_MODEL" description:"Model override for classification"`
	SummarizeModel string `long:"summarize-model" env:"SUMMARIZE_MODEL" description:"Model override for summarization"`
	SpeechModel    string `long:"speech-model" env:"SPEECH_MODEL" default:"tts-1" description:"Model for audio synthesis"`

	// Ingestion configuration
	YouTubeAPIKey string `long:"youtube-api-key" env:"YOUTUBE_API_KEY" description:"YouTube Data API key (video ingestion skipped when empty)"`

	// Delivery configuration
	SMTPHost     string `long:"smtp-host" env:"SMTP_HOST" description:"SMTP server host"`
	SMTPPort     string `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`
	SMTPUser     string `long:"smtp-user" env:"SMTP_USER" description:"SMTP user"`
	SMTPPassword string `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
	EmailFrom    string `long:"email-from" env:"EMAIL_FROM" default:"world-brief@example.com" description:"Sender address"`
	EmailTo      string `long:"email-to" env:"EMAIL_TO" description:"Recipient addresses, comma separated"`
	DryRun       bool   `long:"dry-run" env:"DRY_RUN" description:"Print the email instead of sending"`

	// Run modes
	Serve    bool `long:"serve" description:"Run the dashboard HTTP server instead of a briefing run"`
	Schedule bool `long:"schedule" description:"Run briefings on a cron schedule"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8000" description:"HTTP server port"`
	ScheduleSpec string `long:"schedule-spec" env:"SCHEDULE_SPEC" default:"30 7 * * *" description:"Cron spec for scheduled runs"`
	AudioEnabled bool   `long:"audio" env:"AUDIO_ENABLED" description:"Render per-category audio after each run"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"WorldBrief/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for scheduling (e.g., UTC, Europe/Zurich)"`
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
		SQLitePath:     raw.SQLitePath,
		ConfigDir:      raw.ConfigDir,
		OutputDir:      raw.OutputDir,
		LLMAPIKey:      raw.LLMAPIKey,
		LLMBaseURL:     raw.LLMBaseURL,
		LLMModel:       raw.LLMModel,
		ClassifyModel:  raw.ClassifyModel,
		SummarizeModel: raw.SummarizeModel,
		SpeechModel:    raw.SpeechModel,
		YouTubeAPIKey:  raw.YouTubeAPIKey,
		SMTPHost:       raw.SMTPHost,
		SMTPPort:       raw.SMTPPort,
		SMTPUser:       raw.SMTPUser,
		SMTPPassword:   raw.SMTPPassword,
		EmailFrom:      raw.EmailFrom,
		EmailTo:        raw.EmailTo,
		DryRun:         raw.DryRun,
		Serve:          raw.Serve,
		Schedule:       raw.Schedule,
		Port:           raw.Port,
		ScheduleSpec:   raw.ScheduleSpec,
		AudioEnabled:   raw.AudioEnabled,
		UserAgent:      raw.UserAgent,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
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
		}
	}
	return nil
}
