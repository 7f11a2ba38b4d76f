package vision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/applyr/internal/interfaces"
)

// visionReply is the JSON shape the analysis prompt asks the model to emit
type visionReply struct {
	CaptchaType  string `json:"captcha_type"`
	Solution     string `json:"solution"`
	Instructions string `json:"instructions"`
}

// analysisPrompt builds the captcha analysis prompt. Urgent requests ask for
// a terse, high-accuracy verdict.
func analysisPrompt(req interfaces.VisionRequest) string {
	var b strings.Builder
	b.WriteString("This screenshot shows a verification challenge on a job application page")
	if req.PageURL != "" {
		b.WriteString(" (" + req.PageURL + ")")
	}
	b.WriteString(".\n")
	b.WriteString("Classify the challenge and reply with ONLY a JSON object:\n")
	b.WriteString(`{"captcha_type": "checkbox|text|image_tile|hcaptcha|unknown", "solution": "<text solution if readable, else empty>", "instructions": "<one-line hint>"}` + "\n")
	if req.Urgent {
		b.WriteString("Answer with maximum accuracy; do not guess a text solution you cannot read.\n")
	}
	if req.Prompt != "" {
		b.WriteString(req.Prompt + "\n")
	}
	return b.String()
}

// parseVisionReply extracts the structured verdict, tolerating fenced code
// blocks around the JSON.
func parseVisionReply(text string) (*interfaces.VisionResult, error) {
	trimmed := strings.TrimSpace(text)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}

	var reply visionReply
	if err := json.Unmarshal([]byte(trimmed), &reply); err != nil {
		return nil, fmt.Errorf("vision reply is not valid JSON: %w", err)
	}

	captchaType := interfaces.CaptchaTypeUnknown
	switch strings.ToLower(strings.TrimSpace(reply.CaptchaType)) {
	case "checkbox":
		captchaType = interfaces.CaptchaTypeCheckbox
	case "text":
		captchaType = interfaces.CaptchaTypeText
	case "image_tile", "image-tile", "tiles":
		captchaType = interfaces.CaptchaTypeImageTile
	case "hcaptcha":
		captchaType = interfaces.CaptchaTypeHCaptcha
	}

	return &interfaces.VisionResult{
		Success:             captchaType != interfaces.CaptchaTypeUnknown,
		CaptchaType:         captchaType,
		CaptchaSolution:     strings.TrimSpace(reply.Solution),
		CaptchaInstructions: strings.TrimSpace(reply.Instructions),
	}, nil
}
