package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cluo0901/roomgpt/internal/config"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("generation_service_not_configured")
	ErrNoImage       = errors.New("generation_returned_no_image")
)

// UpstreamError carries the diffusion service's status and message so the
// transport can map it onto its own response.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("generation upstream error (%d): %s", e.Status, e.Message)
}

// Input identifies the source image and the requested restyle.
type Input struct {
	ImageURL string
	Room     string
	Theme    string
}

// Result is the completed generation returned to the caller.
type Result struct {
	Original          string             `json:"original"`
	Generated         string             `json:"generated"`
	Prompt            PromptSections     `json:"prompt"`
	Seed              *int64             `json:"seed,omitempty"`
	Strength          *float64           `json:"strength,omitempty"`
	GuidanceScale     *float64           `json:"guidance_scale,omitempty"`
	NumInferenceSteps *int               `json:"num_inference_steps,omitempty"`
	Controlnets       []ControlNetConfig `json:"controlnets,omitempty"`
	InferenceSeconds  *float64           `json:"inference_seconds,omitempty"`
}

// ControlNetConfig mirrors the service's conditioning parameters.
type ControlNetConfig struct {
	Type              string  `json:"type"`
	ConditioningScale float64 `json:"conditioning_scale"`
	LowThreshold      int     `json:"low_threshold"`
	HighThreshold     int     `json:"high_threshold"`
}

type generateRequest struct {
	ImageURL          string             `json:"image_url"`
	PromptSections    PromptSections     `json:"prompt_sections"`
	NegativePrompt    string             `json:"negative_prompt"`
	Strength          float64            `json:"strength"`
	GuidanceScale     float64            `json:"guidance_scale"`
	NumInferenceSteps int                `json:"num_inference_steps"`
	Controlnets       []ControlNetConfig `json:"controlnets"`
}

type generateResponse struct {
	Image             string             `json:"image"`
	Generated         string             `json:"generated"`
	Data              string             `json:"data"`
	Seed              *int64             `json:"seed"`
	Prompt            *PromptSections    `json:"prompt"`
	Strength          *float64           `json:"strength"`
	GuidanceScale     *float64           `json:"guidance_scale"`
	NumInferenceSteps *int               `json:"num_inference_steps"`
	Controlnets       []ControlNetConfig `json:"controlnets"`
	InferenceSeconds  *float64           `json:"inference_seconds"`
	Error             string             `json:"error"`
}

// Client calls the ControlNet diffusion service.
type Client struct {
	cfg        config.ControlConfig
	log        *zap.Logger
	httpClient *http.Client
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		cfg: cfg.Control,
		log: log.Named("generation.client"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Generate restyles one image. The diffusion knobs come from configuration
// so operators can tune them without a deploy.
func (c *Client) Generate(ctx context.Context, input Input) (*Result, error) {
	if strings.TrimSpace(c.cfg.ServiceURL) == "" {
		return nil, ErrNotConfigured
	}

	base, err := url.Parse(c.cfg.ServiceURL)
	if err != nil {
		return nil, ErrNotConfigured
	}
	endpoint, err := base.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, ErrNotConfigured
	}

	sections := BuildPromptSections(input.Room, input.Theme)
	steps := c.cfg.InferenceSteps
	if steps < 1 {
		steps = 1
	}
	payload := generateRequest{
		ImageURL:          input.ImageURL,
		PromptSections:    sections,
		NegativePrompt:    c.cfg.NegativePrompt,
		Strength:          c.cfg.Strength,
		GuidanceScale:     c.cfg.GuidanceScale,
		NumInferenceSteps: steps,
		Controlnets: []ControlNetConfig{
			{
				Type:              "canny",
				ConditioningScale: c.cfg.CannyScale,
				LowThreshold:      c.cfg.CannyLow,
				HighThreshold:     c.cfg.CannyHigh,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("generation service unreachable", zap.Error(err))
		return nil, &UpstreamError{Status: http.StatusBadGateway, Message: "failed to reach generation service"}
	}
	defer resp.Body.Close()

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		parsed = generateResponse{Error: "invalid response from generation service"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(parsed.Error)
		if message == "" {
			message = fmt.Sprintf("generation failed (%d)", resp.StatusCode)
		}
		c.log.Error("generation service error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", message),
		)
		return nil, &UpstreamError{Status: resp.StatusCode, Message: message}
	}

	generated := firstNonEmpty(parsed.Generated, parsed.Image, parsed.Data)
	if generated == "" {
		return nil, ErrNoImage
	}

	prompt := sections
	if parsed.Prompt != nil {
		prompt = *parsed.Prompt
	}

	return &Result{
		Original:          input.ImageURL,
		Generated:         generated,
		Prompt:            prompt,
		Seed:              parsed.Seed,
		Strength:          parsed.Strength,
		GuidanceScale:     parsed.GuidanceScale,
		NumInferenceSteps: parsed.NumInferenceSteps,
		Controlnets:       parsed.Controlnets,
		InferenceSeconds:  parsed.InferenceSeconds,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
