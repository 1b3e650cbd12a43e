// Package config loads supervisor settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the process configuration.
type Config struct {
	Mode         string        `env:"VOICE_MODE" envDefault:"voice" validate:"oneof=voice manual"`
	CommandsFile string        `env:"VOICE_COMMANDS_FILE" envDefault:"configs/commands.txt" validate:"required"`
	ClipDir      string        `env:"VOICE_CLIP_DIR" envDefault:"/tmp" validate:"required"`
	ClipPlayer   string        `env:"VOICE_CLIP_PLAYER" envDefault:"play" validate:"required"`
	WakePrefix   string        `env:"VOICE_WAKE_PREFIX" envDefault:"机器人" validate:"required"`
	MinLength    int           `env:"VOICE_MIN_LENGTH" envDefault:"7" validate:"gte=0"`
	MaxLength    int           `env:"VOICE_MAX_LENGTH" envDefault:"100" validate:"gtfield=MinLength"`
	RateHz       float64       `env:"VOICE_RATE_HZ" envDefault:"10" validate:"gt=0,lte=100"`
	ListenWait   time.Duration `env:"VOICE_LISTEN_TIMEOUT" envDefault:"15s" validate:"gt=0"`
	SettleDelay  time.Duration `env:"VOICE_SETTLE_DELAY" envDefault:"1s" validate:"gte=0"`

	Bus         string `env:"VOICE_BUS" envDefault:"redis" validate:"oneof=redis memory"`
	TopicPrefix string `env:"VOICE_TOPIC_PREFIX"`
	Redis       Redis  `envPrefix:"REDIS_"`

	ASR    ASR    `envPrefix:"ASR_"`
	TTS    TTS    `envPrefix:"TTS_"`
	Detect Detect `envPrefix:"DETECT_"`

	JournalPath   string `env:"VOICE_JOURNAL" envDefault:"voice-journal.db"`
	DashboardAddr string `env:"VOICE_DASHBOARD_ADDR" envDefault:":8080"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFile  string `env:"LOG_FILE"`
}

// Redis holds bus connection settings.
type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379" validate:"required,hostname_port"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0" validate:"gte=0"`
}

// ASR holds speech gateway settings.
type ASR struct {
	URL      string `env:"URL" envDefault:"ws://localhost:8765/asr" validate:"required,url"`
	AppID    string `env:"APP_ID"`
	APIKey   string `env:"API_KEY"`
	Language string `env:"LANGUAGE" envDefault:"zh_cn"`
}

// TTS holds speech synthesis settings.
type TTS struct {
	APIKey  string  `env:"API_KEY"`
	BaseURL string  `env:"BASE_URL"`
	Voice   string  `env:"VOICE" envDefault:"nova"`
	Model   string  `env:"MODEL" envDefault:"gpt-4o-mini-tts"`
	Speed   float64 `env:"SPEED" envDefault:"1.0" validate:"gte=0.25,lte=4"`
}

// Detect holds detection service settings.
type Detect struct {
	URL     string        `env:"URL" envDefault:"http://localhost:8090/detect" validate:"required,url"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s" validate:"gt=0"`
}

// Load reads the given dotenv files (missing ones are skipped), then the
// environment, and validates the result. Variables already set in the
// environment win over dotenv values.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TTS.APIKey == "" {
		cfg.TTS.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Manual reports whether manual control mode is selected.
func (c *Config) Manual() bool {
	return c.Mode == "manual"
}
