package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/grievai-platform/internal/classification"
	appconfig "github.com/wolfman30/grievai-platform/internal/config"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

// AWSConfigLoader loads SDK configuration for the Bedrock gateway.
type AWSConfigLoader func(ctx context.Context, cfg *appconfig.Config) (aws.Config, error)

// BuildGateway returns the LLM gateway selected by LLM_PROVIDER. A nil
// gateway with a nil error means classification runs on keywords only.
// The returned func releases provider clients.
func BuildGateway(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) (classification.Gateway, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	noop := func() {}

	var (
		gateway classification.Gateway
		closer  = noop
		err     error
	)
	switch cfg.LLMProvider {
	case appconfig.LLMProviderGateway:
		gateway, err = classification.NewGatewayClient(cfg.LLMGatewayURL, cfg.LLMAPIKey, cfg.LLMModel,
			classification.WithTemperature(cfg.LLMTemperature))
	case appconfig.LLMProviderGemini:
		var gemini *classification.GeminiGateway
		gemini, err = classification.NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, cfg.LLMTemperature)
		if err == nil {
			gateway = gemini
			closer = func() { _ = gemini.Close() }
		}
	case appconfig.LLMProviderBedrock:
		if cfg.BedrockModelID == "" {
			err = classification.ErrNotConfigured
			break
		}
		if loadAWS == nil {
			return nil, nil, fmt.Errorf("bootstrap: aws config loader is required for bedrock")
		}
		awsCfg, loadErr := loadAWS(ctx, cfg)
		if loadErr != nil {
			return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", loadErr)
		}
		gateway, err = classification.NewBedrockGateway(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID, cfg.LLMTemperature)
	default:
		logger.Info("llm classification disabled", "provider", cfg.LLMProvider)
		return nil, noop, nil
	}

	if errors.Is(err, classification.ErrNotConfigured) {
		logger.Warn("llm provider selected but not configured; using keyword classification", "provider", cfg.LLMProvider)
		return nil, noop, nil
	}
	if err != nil {
		return nil, nil, err
	}
	logger.Info("llm classification enabled", "provider", gateway.Name(), "timeout", cfg.LLMTimeout.String())
	return gateway, closer, nil
}
