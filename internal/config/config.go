package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the agent.
type Config struct {
	LLM           LLMConfig
	Vision        VisionConfig
	Device        DeviceConfig
	Observability ObservabilityConfig
	ArtifactsDir  string
}

// LLMConfig selects and configures the bound LLM adapter (spec §6:
// llmProvider, model).
type LLMConfig struct {
	Provider       string
	Model          string
	Verbose        bool
	OpenAIKey      string
	AnthropicKey   string
	OllamaConfig   OllamaConfig
	LMStudioConfig LMStudioConfig
	RequestTimeout time.Duration
	RatePerSecond  float64
}

type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type LMStudioConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// VisionConfig is the nested tier-fallback surface of spec §6.
type VisionConfig struct {
	Enabled                   bool
	FallbackOnElementNotFound bool
	FallbackOnLowConfidence   bool
	ConfidenceThreshold       float64
	GridSize                  int
	AlwaysUseVision           bool
	PureVisionOnly            bool
	PureVisionConfig          PureVisionConfig
	// EnableVisionFallback is the legacy coarse toggle; VisionConfig.Enabled
	// takes precedence when explicitly set (see EffectiveEnabled).
	EnableVisionFallback bool
	enabledSet           bool
}

type PureVisionConfig struct {
	Enabled           bool
	MinimumConfidence float64
}

// EffectiveEnabled resolves the enableVisionFallback / visionConfig.enabled
// precedence rule from spec §6: visionConfig.enabled wins when it has been
// explicitly set; otherwise it inherits the legacy coarse toggle.
func (v VisionConfig) EffectiveEnabled() bool {
	if v.enabledSet {
		return v.Enabled
	}
	return v.EnableVisionFallback
}

// DeviceConfig carries the construction-time settings needed to build the
// concrete AppiumSession DeviceSession implementation (internal/device).
// These are construction-time concerns per spec §6 and are not part of the
// engine's own public configuration surface.
type DeviceConfig struct {
	AppiumURL      string
	SessionID      string
	PlatformName   string
	AutomationName string
	AppPackage     string
	AppActivity    string
	RequestTimeout time.Duration
}

type ObservabilityConfig struct {
	ServiceName string
	LogLevel    string
	LogFormat   string
}

// fileOverlay is the optional YAML document layered on top of environment
// variables (see SPEC_FULL.md "Configuration"): a key present in the file
// overrides the environment-derived value. Boolean fields are pointers and
// empty strings / zero numbers are skipped, so an absent key leaves the
// environment-derived value untouched.
type fileOverlay struct {
	LLM *struct {
		Provider string  `yaml:"provider"`
		Model    string  `yaml:"model"`
		Verbose  *bool   `yaml:"verbose"`
		Rate     float64 `yaml:"ratePerSecond"`
	} `yaml:"llm"`
	Vision *struct {
		Enabled                   *bool   `yaml:"enabled"`
		FallbackOnElementNotFound *bool   `yaml:"fallbackOnElementNotFound"`
		FallbackOnLowConfidence   *bool   `yaml:"fallbackOnLowConfidence"`
		ConfidenceThreshold       float64 `yaml:"confidenceThreshold"`
		GridSize                  int     `yaml:"gridSize"`
		AlwaysUseVision           *bool   `yaml:"alwaysUseVision"`
		PureVisionOnly            *bool   `yaml:"pureVisionOnly"`
	} `yaml:"vision"`
	Device *struct {
		AppiumURL    string `yaml:"appiumUrl"`
		PlatformName string `yaml:"platformName"`
		AppPackage   string `yaml:"appPackage"`
		AppActivity  string `yaml:"appActivity"`
	} `yaml:"device"`
	ArtifactsDir string `yaml:"artifactsDir"`
}

// Load loads configuration from environment variables, then layers an
// optional YAML file (path given by AGENT_CONFIG_FILE) on top.
func Load() (*Config, error) {
	cfg := &Config{
		LLM: LLMConfig{
			Provider:     getEnv("LLM_PROVIDER", "openai"),
			Model:        getEnv("LLM_MODEL", "gpt-4o"),
			Verbose:      getBoolEnv("VERBOSE", false),
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			OllamaConfig: OllamaConfig{
				BaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:       getEnv("OLLAMA_MODEL", "qwen3"),
				Temperature: getFloatEnv("OLLAMA_TEMPERATURE", 0.7),
				Timeout:     getDurationEnv("OLLAMA_TIMEOUT", 60*time.Second),
			},
			LMStudioConfig: LMStudioConfig{
				BaseURL:     getEnv("LMSTUDIO_BASE_URL", "http://localhost:1234/v1"),
				Model:       getEnv("LMSTUDIO_MODEL", "local-model"),
				Temperature: getFloatEnv("LMSTUDIO_TEMPERATURE", 0.7),
				MaxTokens:   getIntEnv("LMSTUDIO_MAX_TOKENS", 1000),
				Timeout:     getDurationEnv("LMSTUDIO_TIMEOUT", 60*time.Second),
			},
			RequestTimeout: getDurationEnv("LLM_REQUEST_TIMEOUT", 30*time.Second),
			RatePerSecond:  getFloatEnv("LLM_RATE_PER_SECOND", 2.0),
		},
		Vision: VisionConfig{
			EnableVisionFallback:      getBoolEnv("ENABLE_VISION_FALLBACK", true),
			Enabled:                   getBoolEnv("VISION_CONFIG_ENABLED", true),
			enabledSet:                os.Getenv("VISION_CONFIG_ENABLED") != "",
			FallbackOnElementNotFound: getBoolEnv("VISION_FALLBACK_ON_ELEMENT_NOT_FOUND", true),
			FallbackOnLowConfidence:   getBoolEnv("VISION_FALLBACK_ON_LOW_CONFIDENCE", true),
			ConfidenceThreshold:       getFloatEnv("VISION_CONFIDENCE_THRESHOLD", 0.7),
			GridSize:                  getIntEnv("VISION_GRID_SIZE", 10),
			AlwaysUseVision:           getBoolEnv("VISION_ALWAYS_USE_VISION", false),
			PureVisionOnly:            getBoolEnv("VISION_PURE_VISION_ONLY", false),
			PureVisionConfig: PureVisionConfig{
				Enabled:           getBoolEnv("PURE_VISION_ENABLED", true),
				MinimumConfidence: getFloatEnv("PURE_VISION_MINIMUM_CONFIDENCE", 0.5),
			},
		},
		Device: DeviceConfig{
			AppiumURL:      getEnv("APPIUM_URL", "http://localhost:4723"),
			SessionID:      getEnv("APPIUM_SESSION_ID", ""),
			PlatformName:   getEnv("DEVICE_PLATFORM_NAME", "Android"),
			AutomationName: getEnv("DEVICE_AUTOMATION_NAME", "UiAutomator2"),
			AppPackage:     getEnv("DEVICE_APP_PACKAGE", ""),
			AppActivity:    getEnv("DEVICE_APP_ACTIVITY", ""),
			RequestTimeout: getDurationEnv("APPIUM_REQUEST_TIMEOUT", 30*time.Second),
		},
		Observability: ObservabilityConfig{
			ServiceName: getEnv("OTEL_SERVICE_NAME", "mobile-agent"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "json"),
		},
		ArtifactsDir: getEnv("ARTIFACTS_DIR", ""),
	}

	if cfg.LLM.Verbose {
		cfg.Observability.LogLevel = "debug"
	}

	if path := getEnv("AGENT_CONFIG_FILE", ""); path != "" {
		if err := applyFileOverlay(cfg, path); err != nil {
			return nil, fmt.Errorf("applying config file %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func applyFileOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}

	if overlay.LLM != nil {
		if overlay.LLM.Provider != "" {
			cfg.LLM.Provider = overlay.LLM.Provider
		}
		if overlay.LLM.Model != "" {
			cfg.LLM.Model = overlay.LLM.Model
		}
		if overlay.LLM.Verbose != nil {
			cfg.LLM.Verbose = *overlay.LLM.Verbose
		}
		if overlay.LLM.Rate != 0 {
			cfg.LLM.RatePerSecond = overlay.LLM.Rate
		}
	}
	if overlay.Vision != nil {
		if overlay.Vision.Enabled != nil {
			cfg.Vision.Enabled = *overlay.Vision.Enabled
			cfg.Vision.enabledSet = true
		}
		if overlay.Vision.FallbackOnElementNotFound != nil {
			cfg.Vision.FallbackOnElementNotFound = *overlay.Vision.FallbackOnElementNotFound
		}
		if overlay.Vision.FallbackOnLowConfidence != nil {
			cfg.Vision.FallbackOnLowConfidence = *overlay.Vision.FallbackOnLowConfidence
		}
		if overlay.Vision.ConfidenceThreshold != 0 {
			cfg.Vision.ConfidenceThreshold = overlay.Vision.ConfidenceThreshold
		}
		if overlay.Vision.GridSize != 0 {
			cfg.Vision.GridSize = overlay.Vision.GridSize
		}
		if overlay.Vision.AlwaysUseVision != nil {
			cfg.Vision.AlwaysUseVision = *overlay.Vision.AlwaysUseVision
		}
		if overlay.Vision.PureVisionOnly != nil {
			cfg.Vision.PureVisionOnly = *overlay.Vision.PureVisionOnly
		}
	}
	if overlay.Device != nil {
		if overlay.Device.AppiumURL != "" {
			cfg.Device.AppiumURL = overlay.Device.AppiumURL
		}
		if overlay.Device.PlatformName != "" {
			cfg.Device.PlatformName = overlay.Device.PlatformName
		}
		if overlay.Device.AppPackage != "" {
			cfg.Device.AppPackage = overlay.Device.AppPackage
		}
		if overlay.Device.AppActivity != "" {
			cfg.Device.AppActivity = overlay.Device.AppActivity
		}
	}
	if overlay.ArtifactsDir != "" {
		cfg.ArtifactsDir = overlay.ArtifactsDir
	}

	return nil
}

func (c *Config) validate() error {
	if c.Vision.GridSize < 5 || c.Vision.GridSize > 20 {
		return fmt.Errorf("vision grid size must be in [5,20], got %d", c.Vision.GridSize)
	}
	if c.LLM.Provider == "" {
		return fmt.Errorf("LLM_PROVIDER is required")
	}
	return nil
}

// Helper functions for environment variable parsing, the teacher's idiom
// for Load().
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
