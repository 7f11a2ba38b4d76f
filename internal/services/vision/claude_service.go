package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/interfaces"
)

// ClaudeVisionService implements VisionService using the Anthropic API.
// It submits challenge screenshots for analysis and parses the structured
// verdict out of the model's reply.
type ClaudeVisionService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    *anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// NewClaudeVisionService creates a Claude-backed vision service
func NewClaudeVisionService(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeVisionService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for Claude vision service (set ANTHROPIC_API_KEY or vision.claude.api_key)")
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Claude vision service initialized")

	return &ClaudeVisionService{
		config:    config,
		logger:    logger,
		client:    &client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}, nil
}

// ProviderName identifies the backing provider
func (s *ClaudeVisionService) ProviderName() string { return "claude" }

// AnalyzeImage submits the challenge screenshot and parses the verdict
func (s *ClaudeVisionService) AnalyzeImage(ctx context.Context, req interfaces.VisionRequest) (*interfaces.VisionResult, error) {
	if len(req.ImagePNG) == 0 {
		return nil, fmt.Errorf("image data cannot be empty")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}

	prompt := analysisPrompt(req)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(req.ImagePNG)),
				anthropic.NewTextBlock(prompt),
			),
		},
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	resp, err := s.client.Messages.New(callCtx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Claude API")
	}

	result, err := parseVisionReply(text.String())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to parse vision reply")
		return &interfaces.VisionResult{Success: false}, nil
	}
	return result, nil
}
