// Command agent is a thin CLI entrypoint that wires configuration,
// logging, the device session, the LLM adapter, the decision engine, and
// the session controller, then runs a single instruction end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/device"
	"github.com/ai-agentic-browser/internal/dispatcher"
	"github.com/ai-agentic-browser/internal/engine"
	"github.com/ai-agentic-browser/internal/llm"
	"github.com/ai-agentic-browser/internal/observer"
	"github.com/ai-agentic-browser/internal/session"
	"github.com/ai-agentic-browser/pkg/observability"
)

func main() {
	instruction := flag.String("instruction", "", "natural-language instruction to execute")
	assertCondition := flag.String("assert", "", "optional post-condition to verify after executing")
	flag.Parse()

	if *instruction == "" {
		log.Fatal("-instruction is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability)
	tracingProvider, err := observability.NewTracingProvider(cfg.Observability)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer tracingProvider.Shutdown(context.Background())

	adapter, err := buildAdapter(cfg.LLM, logger)
	if err != nil {
		log.Fatalf("failed to build LLM adapter: %v", err)
	}

	dev := device.NewAppiumSession(cfg.Device.AppiumURL, cfg.Device.SessionID, cfg.Device.RequestTimeout)

	obs := observer.New(dev)
	eng := engine.New(obs, adapter, engineConfig(cfg.Vision), logger)

	perf := observability.NewPerformanceLogger(logger)
	disp := dispatcher.New(dev, perf, cfg.ArtifactsDir)

	audit := observability.NewAuditLogger(logger)
	ctrl := session.New(eng, disp, dev, cfg.ArtifactsDir, audit)

	ctx := context.Background()

	if _, err := ctrl.StartSession(ctx, *instruction); err != nil {
		log.Fatalf("failed to start session: %v", err)
	}

	success, err := ctrl.Execute(ctx, *instruction)
	if err != nil {
		logger.Error(ctx, "execute failed", err)
	}

	if *assertCondition != "" {
		passed, err := ctrl.Assert(ctx, *assertCondition)
		if err != nil {
			logger.Error(ctx, "assert failed", err)
		}
		fmt.Fprintf(os.Stdout, "assertion passed: %v\n", passed)
	}

	if _, err := ctrl.StopSession(ctx, success); err != nil {
		log.Fatalf("failed to stop session: %v", err)
	}

	if !success {
		os.Exit(1)
	}
}

func buildAdapter(cfg config.LLMConfig, logger *observability.Logger) (llm.Adapter, error) {
	switch cfg.Provider {
	case "anthropic":
		return llm.NewAnthropicAdapter(cfg.AnthropicKey, cfg.Model, cfg.RatePerSecond, logger), nil
	case "ollama":
		return llm.NewOllamaAdapter(cfg.OllamaConfig.BaseURL, cfg.OllamaConfig.Model, cfg.OllamaConfig.Temperature, cfg.OllamaConfig.Timeout, logger), nil
	case "lmstudio":
		return llm.NewLMStudioAdapter(cfg.LMStudioConfig.BaseURL, cfg.LMStudioConfig.Model, cfg.LMStudioConfig.Temperature, cfg.LMStudioConfig.MaxTokens, cfg.LMStudioConfig.Timeout, logger), nil
	case "openai", "":
		return llm.NewOpenAIAdapter(cfg.OpenAIKey, cfg.Model, cfg.RatePerSecond, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func engineConfig(v config.VisionConfig) engine.Config {
	return engine.Config{
		EnableVisionFallback:        v.EnableVisionFallback,
		VisionEnabled:               v.EffectiveEnabled(),
		FallbackOnElementNotFound:   v.FallbackOnElementNotFound,
		FallbackOnLowConfidence:     v.FallbackOnLowConfidence,
		ConfidenceThreshold:         v.ConfidenceThreshold,
		GridSize:                    v.GridSize,
		AlwaysUseVision:             v.AlwaysUseVision,
		PureVisionOnly:              v.PureVisionOnly,
		PureVisionEnabled:           v.PureVisionConfig.Enabled,
		PureVisionMinimumConfidence: v.PureVisionConfig.MinimumConfidence,
	}
}
