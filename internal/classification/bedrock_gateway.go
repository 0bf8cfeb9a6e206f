package classification

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/wolfman30/grievai-platform/pkg/classify"
)

// BedrockConverseAPI is the subset of the Bedrock client used for classification.
type BedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockGateway classifies grievances through the Bedrock Converse API with
// a required tool choice.
type BedrockGateway struct {
	api         BedrockConverseAPI
	modelID     string
	temperature float32
}

func NewBedrockGateway(api BedrockConverseAPI, modelID string, temperature float32) (*BedrockGateway, error) {
	if api == nil || strings.TrimSpace(modelID) == "" {
		return nil, ErrNotConfigured
	}
	return &BedrockGateway{api: api, modelID: modelID, temperature: temperature}, nil
}

func (g *BedrockGateway) Name() string { return "bedrock" }

func (g *BedrockGateway) Classify(ctx context.Context, in classify.Input) (classify.Result, error) {
	out, err := g.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(g.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: SystemPrompt},
		},
		Messages: []brtypes.Message{{
			Role: brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberText{Value: UserPrompt(in)},
			},
		}},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(512),
			Temperature: aws.Float32(g.temperature),
		},
		ToolConfig: bedrockToolConfig(),
	})
	if err != nil {
		return classify.Result{}, fmt.Errorf("%w: bedrock converse: %w", ErrUpstream, err)
	}
	raw, err := bedrockToolArguments(out)
	if err != nil {
		return classify.Result{}, err
	}
	return classify.ParseToolArguments(raw)
}

func bedrockToolConfig() *brtypes.ToolConfiguration {
	return &brtypes.ToolConfiguration{
		Tools: []brtypes.Tool{
			&brtypes.ToolMemberToolSpec{Value: brtypes.ToolSpecification{
				Name:        aws.String(classify.ToolName),
				Description: aws.String(classify.ToolDescription),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(classify.ToolParameters()),
				},
			}},
		},
		ToolChoice: &brtypes.ToolChoiceMemberTool{
			Value: brtypes.SpecificToolChoice{Name: aws.String(classify.ToolName)},
		},
	}
}

func bedrockToolArguments(out *bedrockruntime.ConverseOutput) ([]byte, error) {
	if out == nil || out.Output == nil {
		return nil, ErrNoToolCall
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return nil, ErrNoToolCall
	}
	for _, block := range msg.Value.Content {
		use, ok := block.(*brtypes.ContentBlockMemberToolUse)
		if !ok || aws.ToString(use.Value.Name) != classify.ToolName {
			continue
		}
		if use.Value.Input == nil {
			return nil, fmt.Errorf("%w: empty tool input", ErrInvalidPayload)
		}
		raw, err := use.Value.Input.MarshalSmithyDocument()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return raw, nil
	}
	return nil, ErrNoToolCall
}
