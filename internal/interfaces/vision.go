package interfaces

import "context"

// CaptchaType classifies the challenge the vision service recognized
type CaptchaType string

const (
	CaptchaTypeCheckbox  CaptchaType = "checkbox"
	CaptchaTypeText      CaptchaType = "text"
	CaptchaTypeImageTile CaptchaType = "image_tile"
	CaptchaTypeHCaptcha  CaptchaType = "hcaptcha"
	CaptchaTypeUnknown   CaptchaType = "unknown"
)

// VisionRequest asks the vision service to analyze a challenge screenshot
type VisionRequest struct {
	ImagePNG  []byte // raw PNG bytes of the challenge region
	PageURL   string // page the challenge appeared on
	Urgent    bool   // request high-accuracy/priority processing
	Prompt    string // optional extra context for the analysis
	MediaType string // defaults to image/png
}

// VisionResult is the vision service's analysis of a challenge screenshot
type VisionResult struct {
	Success             bool
	CaptchaType         CaptchaType
	CaptchaSolution     string
	CaptchaInstructions string
}

// VisionService analyzes captcha screenshots. Implementations wrap an
// AI provider; absence of a configured service is a normal condition the
// captcha adapter degrades around.
type VisionService interface {
	AnalyzeImage(ctx context.Context, req VisionRequest) (*VisionResult, error)
	ProviderName() string
}
