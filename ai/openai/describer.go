package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docrag/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ImageDescriber implements ai.ImageDescriber with an OpenAI-compatible
// multimodal chat model.
type ImageDescriber struct {
	client    llms.Model
	maxTokens int
	logger    *slog.Logger
}

func newImageDescriber(config *ai.Config) (*ImageDescriber, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.VisionHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.VisionModel),
	)
	if err != nil {
		return nil, err
	}

	return &ImageDescriber{
		client:    client,
		maxTokens: config.DescriptionMaxTokens,
		logger:    slog.Default().With("component", "openai-describer"),
	}, nil
}

// NewImageDescriber creates a describer using the provided configuration.
func NewImageDescriber(config *ai.Config) (ai.ImageDescriber, error) {
	return newImageDescriber(config)
}

// DescribeImage sends the image and the description prompt in a single
// user message and returns the trimmed reply.
func (d *ImageDescriber) DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	d.logger.Debug("describing image", "mime", mimeType, "bytes", len(data))

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(describeImagePrompt),
				llms.BinaryPart(mimeType, data),
			},
		},
	}

	opts := []llms.CallOption{llms.WithTemperature(0)}
	if d.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(d.maxTokens))
	}

	resp, err := d.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		d.logger.Error("image description failed", "err", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ai.ErrEmptyDescription)
	}

	desc := strings.TrimSpace(resp.Choices[0].Content)
	if desc == "" {
		return "", ai.ErrEmptyDescription
	}
	return desc, nil
}
