// Package config provides the configuration structure for the likutei-yomi service.
package config

import (
	"fmt"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Default values applied when the project TOML leaves a field unset.
const (
	DefaultSefariaBaseURL    = "https://www.sefaria.org/api"
	DefaultSefariaWebURL     = "https://www.sefaria.org"
	DefaultSefariaTimeoutSec = 30
	DefaultTTSBaseURL        = "https://texttospeech.googleapis.com"
	DefaultMaxMessageLength  = 4000
	DefaultMaxSpeechChars    = 1200
	DefaultVoiceName         = "he-IL-Wavenet-D"
	DefaultLanguageCode      = "he-IL"
	DefaultSilenceMillis     = 300
	DefaultSendsPerSecond    = 25
	DefaultTimezone          = "Asia/Jerusalem"
)

// SefariaConfig holds the configuration for the Sefaria API client.
type SefariaConfig struct {
	BaseURL        string `toml:"base_url"`
	WebURL         string `toml:"web_url"`
	CatalogPath    string `toml:"catalog_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CacheConfig holds the configuration for the pair and audio caches.
type CacheConfig struct {
	Dir string `toml:"dir"`
}

// TelegramConfig holds the configuration for the Telegram Bot API sender.
type TelegramConfig struct {
	BotToken       string  `toml:"bot_token"`
	ChannelID      string  `toml:"channel_id"`
	SendsPerSecond float64 `toml:"sends_per_second"`
}

// TTSConfig holds the configuration for the speech synthesis pipeline.
type TTSConfig struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	VoiceName      string `toml:"voice_name"`
	LanguageCode   string `toml:"language_code"`
	MaxChunkChars  int    `toml:"max_chunk_chars"`
	SilenceMillis  int    `toml:"silence_millis"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// NATSConfig holds the configuration for the broadcast worker.
type NATSConfig struct {
	URL                       string `toml:"url"`
	BroadcastRequestedSubject string `toml:"broadcast_requested_subject"`
	BroadcastCompletedSubject string `toml:"broadcast_completed_subject"`
	AudioArchiveBucket        string `toml:"audio_archive_bucket"`
}

// MessageConfig holds the configuration for message rendering.
type MessageConfig struct {
	MaxLength int `toml:"max_length"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir   string `toml:"base_logs_dir"`
	SubscribersDB string `toml:"subscribers_db"`
}

// Config is the root configuration structure.
type Config struct {
	Sefaria  SefariaConfig  `toml:"sefaria"`
	Cache    CacheConfig    `toml:"cache"`
	Telegram TelegramConfig `toml:"telegram"`
	TTS      TTSConfig      `toml:"tts"`
	NATS     NATSConfig     `toml:"nats"`
	Message  MessageConfig  `toml:"message"`
	Paths    PathsConfig    `toml:"paths"`
	Timezone string         `toml:"timezone"`
}

// Load loads the configuration for the likutei-yomi service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// SefariaTimeout returns the configured Sefaria request timeout as a Duration.
func (c *Config) SefariaTimeout() time.Duration {
	return time.Duration(c.Sefaria.TimeoutSeconds) * time.Second
}

// TTSTimeout returns the configured synthesis request timeout as a Duration.
func (c *Config) TTSTimeout() time.Duration {
	return time.Duration(c.TTS.TimeoutSeconds) * time.Second
}

// SilenceGap returns the configured inter-chunk silence as a Duration.
func (c *Config) SilenceGap() time.Duration {
	return time.Duration(c.TTS.SilenceMillis) * time.Millisecond
}

// ApplyDefaults fills unset fields with their documented defaults. Load calls
// this automatically; tests that build a Config by hand may call it directly.
func (c *Config) ApplyDefaults() {
	if c.Sefaria.BaseURL == "" {
		c.Sefaria.BaseURL = DefaultSefariaBaseURL
	}

	if c.Sefaria.WebURL == "" {
		c.Sefaria.WebURL = DefaultSefariaWebURL
	}

	if c.Sefaria.TimeoutSeconds == 0 {
		c.Sefaria.TimeoutSeconds = DefaultSefariaTimeoutSec
	}

	if c.Message.MaxLength == 0 {
		c.Message.MaxLength = DefaultMaxMessageLength
	}

	if c.TTS.MaxChunkChars == 0 {
		c.TTS.MaxChunkChars = DefaultMaxSpeechChars
	}

	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = DefaultTTSBaseURL
	}

	if c.TTS.VoiceName == "" {
		c.TTS.VoiceName = DefaultVoiceName
	}

	if c.TTS.LanguageCode == "" {
		c.TTS.LanguageCode = DefaultLanguageCode
	}

	if c.TTS.SilenceMillis == 0 {
		c.TTS.SilenceMillis = DefaultSilenceMillis
	}

	if c.TTS.TimeoutSeconds == 0 {
		c.TTS.TimeoutSeconds = DefaultSefariaTimeoutSec
	}

	if c.Telegram.SendsPerSecond == 0 {
		c.Telegram.SendsPerSecond = DefaultSendsPerSecond
	}

	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
}

// Location resolves the configured timezone. Falls back to UTC when the
// timezone database does not know the configured name.
func (c *Config) Location() *time.Location {
	location, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}

	return location
}
