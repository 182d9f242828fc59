package engine

// Config is the decision engine's public configuration surface (spec §6).
type Config struct {
	EnableVisionFallback      bool
	VisionEnabled             bool
	FallbackOnElementNotFound bool
	FallbackOnLowConfidence   bool
	ConfidenceThreshold       float64
	GridSize                  int
	AlwaysUseVision           bool
	PureVisionOnly            bool
	PureVisionEnabled         bool
	PureVisionMinimumConfidence float64
}

// effectiveVisionEnabled returns VisionEnabled. EnableVisionFallback is not
// consulted here; the enableVisionFallback/visionConfig.enabled precedence
// is resolved before the value reaches this Config (see
// config.VisionConfig.EffectiveEnabled).
func (c Config) effectiveVisionEnabled() bool {
	return c.VisionEnabled
}

// DefaultConfig mirrors the defaults spec §6 names.
func DefaultConfig() Config {
	return Config{
		EnableVisionFallback:        true,
		VisionEnabled:               true,
		FallbackOnElementNotFound:   true,
		FallbackOnLowConfidence:     true,
		ConfidenceThreshold:         0.7,
		GridSize:                    10,
		AlwaysUseVision:             false,
		PureVisionOnly:              false,
		PureVisionEnabled:           true,
		PureVisionMinimumConfidence: 0.5,
	}
}
