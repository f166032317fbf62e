package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"github.com/kozaktomas/doppelganger/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var patternsYAML []byte

type Config struct {
	Detector   DetectorConfig
	Expression ExpressionConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	Catalog    CatalogConfig
	Database   DatabaseConfig
	Matching   MatchingConfig
	Log        LogConfig
	Web        WebConfig
	Patterns   PatternsConfig
}

type DetectorConfig struct {
	URL          string // defaults to http://localhost:8000
	MaxImageSize int    // longest image side sent to the detector, defaults to 1280
}

// Expression providers.
const (
	ProviderDetector = "detector"
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderNone     = "none"
)

type ExpressionConfig struct {
	Provider string // detector, gemini, openai or none
}

type OpenAIConfig struct {
	Token string
	Model string // defaults to gpt-4.1-mini
}

type GeminiConfig struct {
	APIKey string
	Model  string // defaults to gemini-2.5-flash
}

// Catalog sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type CatalogConfig struct {
	Path   string // JSON dataset, defaults to monkey_dataset.json
	Source string // file or postgres
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MatchingConfig struct {
	MutationsEnabled bool
	Seed             uint64 // 0 picks a random seed
}

type LogConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

type WebConfig struct {
	AllowedOrigins []string // empty allows every origin
	ImagesDir      string   // served under /monkeys/ when set
}

// PatternsConfig holds the static lookup tables used by the matcher.
type PatternsConfig struct {
	Poses         map[string][]string    `yaml:"poses"`
	UnknownPose   []string               `yaml:"unknown_pose"`
	Expressions   map[string][]string    `yaml:"expressions"`
	ChaosMessages map[string]string      `yaml:"chaos_messages"`
	Placeholders  map[string]Placeholder `yaml:"placeholders"`
}

// Placeholder is a stand-in catalog entry.
type Placeholder struct {
	ID      string `yaml:"id"`
	Image   string `yaml:"image"`
	Species string `yaml:"species"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func envList(key string) []string {
	var out []string
	for s := range strings.SplitSeq(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DefaultPatterns parses the embedded pattern tables.
func DefaultPatterns() PatternsConfig {
	var patterns PatternsConfig
	if err := yaml.Unmarshal(patternsYAML, &patterns); err != nil {
		// Embedded file, so this only fires on a broken build.
		panic("failed to unmarshal embedded patterns.yaml: " + err.Error())
	}
	return patterns
}

func Load() *Config {
	seed, _ := strconv.ParseUint(os.Getenv("MATCH_SEED"), 10, 64)

	return &Config{
		Detector: DetectorConfig{
			URL:          envString("DETECTOR_URL", "http://localhost:8000"),
			MaxImageSize: envInt("DETECTOR_MAX_IMAGE_SIZE", constants.DefaultMaxImageSize),
		},
		Expression: ExpressionConfig{
			Provider: strings.ToLower(envString("EXPRESSION_PROVIDER", ProviderDetector)),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
			Model: envString("OPENAI_MODEL", "gpt-4.1-mini"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  envString("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Catalog: CatalogConfig{
			Path:   envString("CATALOG_PATH", "monkey_dataset.json"),
			Source: strings.ToLower(envString("CATALOG_SOURCE", SourceFile)),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Matching: MatchingConfig{
			MutationsEnabled: envBool("MUTATIONS_ENABLED"),
			Seed:             seed,
		},
		Log: LogConfig{
			Level:       envString("LOG_LEVEL", "info"),
			Development: envBool("LOG_DEV"),
		},
		Web: WebConfig{
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
			ImagesDir:      os.Getenv("WEB_IMAGES_DIR"),
		},
		Patterns: DefaultPatterns(),
	}
}

// ChaosMessage returns the message for a failure reason, falling back to the
// "default" entry.
func (p PatternsConfig) ChaosMessage(reason string) string {
	if msg, ok := p.ChaosMessages[reason]; ok {
		return msg
	}
	return p.ChaosMessages["default"]
}
