package vision

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/interfaces"
)

// NewVisionService creates the configured vision provider. An empty provider
// means no vision service; captcha resolution then degrades to passive waits.
func NewVisionService(ctx context.Context, config *common.VisionConfig, logger arbor.ILogger) (interfaces.VisionService, error) {
	switch config.Provider {
	case "":
		return nil, nil
	case "claude":
		return NewClaudeVisionService(&config.Claude, logger)
	case "gemini":
		return NewGeminiVisionService(ctx, &config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown vision provider: %s", config.Provider)
	}
}
