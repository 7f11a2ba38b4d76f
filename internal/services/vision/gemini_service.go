package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/interfaces"
)

// GeminiVisionService implements VisionService using the Gemini API
type GeminiVisionService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiVisionService creates a Gemini-backed vision service
func NewGeminiVisionService(ctx context.Context, config *common.GeminiConfig, logger arbor.ILogger) (*GeminiVisionService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for Gemini vision service (set GEMINI_API_KEY or vision.gemini.api_key)")
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Gemini vision service initialized")

	return &GeminiVisionService{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}, nil
}

// ProviderName identifies the backing provider
func (s *GeminiVisionService) ProviderName() string { return "gemini" }

// AnalyzeImage submits the challenge screenshot and parses the verdict
func (s *GeminiVisionService) AnalyzeImage(ctx context.Context, req interfaces.VisionRequest) (*interfaces.VisionResult, error) {
	if len(req.ImagePNG) == 0 {
		return nil, fmt.Errorf("image data cannot be empty")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}

	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				genai.NewPartFromBytes(req.ImagePNG, mediaType),
				genai.NewPartFromText(analysisPrompt(req)),
			},
		},
	}

	resp, err := s.client.Models.GenerateContent(callCtx, s.config.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Gemini generation failed: %w", err)
	}

	var text strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				break
			}
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Gemini API")
	}

	result, err := parseVisionReply(text.String())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to parse vision reply")
		return &interfaces.VisionResult{Success: false}, nil
	}
	return result, nil
}
