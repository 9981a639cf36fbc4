// Package config handles loading and validating the doctech configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the doctech daemon.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Transports  TransportsConfig  `mapstructure:"transports"`
	Interpreter InterpreterConfig `mapstructure:"interpreter"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Search      SearchConfig      `mapstructure:"search"`
	TTS         TTSConfig         `mapstructure:"tts"`
	Audio       AudioConfig       `mapstructure:"audio"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds the health and metrics server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`

	// PublicURL prefixes audio URLs handed to clients (e.g. "http://localhost:5000").
	// Empty means relative URLs.
	PublicURL string `mapstructure:"public_url"`

	// MaxUploadBytes caps audio uploads.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// InterpreterConfig selects and configures the language backend.
type InterpreterConfig struct {
	Backend string       `mapstructure:"backend"` // "openai" or "local"
	OpenAI  OpenAIConfig `mapstructure:"openai"`
	Local   LocalConfig  `mapstructure:"local"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey             string `mapstructure:"api_key"`
	BaseURL            string `mapstructure:"base_url"`
	TranscriptionModel string `mapstructure:"transcription_model"`
	CompletionModel    string `mapstructure:"completion_model"`
}

// LocalConfig holds self-hosted model settings.
type LocalConfig struct {
	WhisperEndpoint string `mapstructure:"whisper_endpoint"`
	WhisperType     string `mapstructure:"whisper_type"` // "openai" (default) or "asr" (ahmetoner/whisper-asr-webservice)
	LLMEndpoint     string `mapstructure:"llm_endpoint"` // OpenAI-compatible base URL (e.g., Ollama's http://localhost:11434/v1)
	LLMModel        string `mapstructure:"llm_model"`    // e.g., "llama3.2"
	VADFilter       bool   `mapstructure:"vad_filter"`
	Language        string `mapstructure:"language"` // ISO-639-1 default language (e.g., "en", "fr")
}

// PipelineConfig bounds each external call made by the pipeline.
type PipelineConfig struct {
	// CallTimeout applies to every transcription, classification, extraction,
	// narration and speech call.
	CallTimeout time.Duration `mapstructure:"call_timeout"`

	// SearchTimeout applies to every search gateway call.
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
}

// SearchConfig selects and configures the semantic search backend.
type SearchConfig struct {
	Backend string        `mapstructure:"backend"` // "groundx"
	GroundX GroundXConfig `mapstructure:"groundx"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// GroundXConfig holds GroundX search API settings.
type GroundXConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	BucketID int    `mapstructure:"bucket_id"`
}

// BreakerConfig configures the circuit breaker in front of the search backend.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32 `mapstructure:"max_failures"`

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Enabled bool            `mapstructure:"enabled"`
	Backend string          `mapstructure:"backend"` // "openai" or "piper"
	OpenAI  OpenAITTSConfig `mapstructure:"openai"`
	Piper   PiperConfig     `mapstructure:"piper"`
}

// OpenAITTSConfig holds OpenAI speech settings. The API key and base URL are
// shared with the OpenAI interpreter.
type OpenAITTSConfig struct {
	Model string `mapstructure:"model"`
	Voice string `mapstructure:"voice"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all languages, set Endpoint.
// For per-language instances, set Endpoints which maps ISO-639-1 codes to
// individual Wyoming TCP endpoints. If both are set, Endpoints takes
// precedence and Endpoint is the fallback.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`  // Default Wyoming TCP endpoint (host:port)
	Endpoints map[string]string `mapstructure:"endpoints"` // ISO-639-1 language code -> Wyoming TCP endpoint
	Voices    map[string]string `mapstructure:"voices"`    // ISO-639-1 language code -> Piper voice model name
}

// AudioConfig selects where spoken confirmations are kept until the client fetches them.
type AudioConfig struct {
	Store string        `mapstructure:"store"` // "memory" or "redis"
	TTL   time.Duration `mapstructure:"ttl"`
	Redis RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings for the audio store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./doctech.yaml, ./configs/doctech.yaml, /etc/doctech/doctech.yaml.
// The returned string is the config file that was read, or "" if none.
func Load(configFile string) (*Config, string, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("doctech")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/doctech")
	}

	// Environment variables: DOCTECH_SERVER_HEALTH_PORT, DOCTECH_SEARCH_GROUNDX_BUCKET_ID, etc.
	v.SetEnvPrefix("DOCTECH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional; env vars and defaults are sufficient)
	var used string
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, "", fmt.Errorf("reading config: %w", err)
		}
	} else {
		used = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.Interpreter.OpenAI.APIKey = resolveEnvRef(cfg.Interpreter.OpenAI.APIKey)
	cfg.Search.GroundX.APIKey = resolveEnvRef(cfg.Search.GroundX.APIKey)
	cfg.Audio.Redis.Password = resolveEnvRef(cfg.Audio.Redis.Password)

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 5000)
	v.SetDefault("transports.http.public_url", "")
	v.SetDefault("transports.http.max_upload_bytes", 25<<20)
	v.SetDefault("interpreter.backend", "openai")
	v.SetDefault("interpreter.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("interpreter.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("interpreter.openai.transcription_model", "whisper-1")
	v.SetDefault("interpreter.openai.completion_model", "gpt-4o")
	v.SetDefault("interpreter.local.whisper_endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("interpreter.local.whisper_type", "openai")
	v.SetDefault("interpreter.local.llm_endpoint", "http://localhost:11434/v1")
	v.SetDefault("interpreter.local.llm_model", "llama3.2")
	v.SetDefault("interpreter.local.vad_filter", false)
	v.SetDefault("interpreter.local.language", "")
	v.SetDefault("pipeline.call_timeout", 20*time.Second)
	v.SetDefault("pipeline.search_timeout", 30*time.Second)
	v.SetDefault("search.backend", "groundx")
	v.SetDefault("search.groundx.api_key", "${GROUNDX_API_KEY}")
	v.SetDefault("search.groundx.base_url", "https://api.groundx.ai/api/v1")
	v.SetDefault("search.groundx.bucket_id", 11795)
	v.SetDefault("search.breaker.max_failures", 5)
	v.SetDefault("search.breaker.open_timeout", 30*time.Second)
	v.SetDefault("tts.enabled", true)
	v.SetDefault("tts.backend", "openai")
	v.SetDefault("tts.openai.model", "tts-1")
	v.SetDefault("tts.openai.voice", "alloy")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("audio.store", "memory")
	v.SetDefault("audio.ttl", 10*time.Minute)
	v.SetDefault("audio.redis.addr", "localhost:6379")
	v.SetDefault("audio.redis.db", 0)
	v.SetDefault("audio.redis.prefix", "doctech:audio:")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects unknown backends and non-positive timeouts.
func (c *Config) Validate() error {
	switch c.Interpreter.Backend {
	case "openai", "local":
	default:
		return fmt.Errorf("unknown interpreter backend %q", c.Interpreter.Backend)
	}
	if c.Search.Backend != "groundx" {
		return fmt.Errorf("unknown search backend %q", c.Search.Backend)
	}
	if c.TTS.Enabled {
		switch c.TTS.Backend {
		case "openai", "piper":
		default:
			return fmt.Errorf("unknown tts backend %q", c.TTS.Backend)
		}
	}
	switch c.Audio.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown audio store %q", c.Audio.Store)
	}
	if c.Pipeline.CallTimeout <= 0 || c.Pipeline.SearchTimeout <= 0 {
		return fmt.Errorf("pipeline timeouts must be positive")
	}
	if !c.Transports.HTTP.Enabled && !c.Transports.GRPC.Enabled {
		return fmt.Errorf("no transports enabled; enable at least one of transports.http, transports.grpc")
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
// Unset variables resolve to "".
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}
