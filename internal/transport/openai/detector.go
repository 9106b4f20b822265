// Package openai detects image labels through an OpenAI-compatible vision chat API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/photodex/internal/domain"
	"github.com/kailas-cloud/photodex/internal/domain/label"
)

// DefaultImageURLTTL bounds the signed URL handed to the model.
const DefaultImageURLTTL = 10 * time.Minute

const systemPrompt = "You are an image labeling service. You list the objects, scenes, animals and " +
	"concepts visible in a photograph. You always answer with a single JSON object."

const userPrompt = `List the labels that describe this photograph.
Answer with JSON of the form {"labels":[{"name":"Dog","confidence":97.5}]}.
"name" is a short noun phrase in English; "confidence" is a number between 0 and 100.
Do not include any text outside the JSON object.`

// Signer mints a short-lived URL the model can fetch the image from.
type Signer interface {
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Config holds the detection provider settings.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	MinConfidence float64
	MaxLabels     int
	ImageURLTTL   time.Duration
	Signer        Signer
	Logger        *zap.Logger
}

// Detector is a label detection engine backed by a vision chat model.
type Detector struct {
	client        *openai.Client
	model         string
	minConfidence float64
	maxLabels     int
	ttl           time.Duration
	signer        Signer
	logger        *zap.Logger
}

// NewDetector creates an OpenAI-compatible label detector.
func NewDetector(cfg *Config) *Detector {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	ttl := cfg.ImageURLTTL
	if ttl <= 0 {
		ttl = DefaultImageURLTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Detector{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         cfg.Model,
		minConfidence: cfg.MinConfidence,
		maxLabels:     cfg.MaxLabels,
		ttl:           ttl,
		signer:        cfg.Signer,
		logger:        logger,
	}
}

// Detect implements ingest.Detector. Labels are filtered by confidence and count.
func (d *Detector) Detect(ctx context.Context, bucket, key string) ([]label.Detected, error) {
	imageURL, err := d.signer.SignedURL(ctx, bucket, key, d.ttl)
	if err != nil {
		return nil, fmt.Errorf("image url: %w: %w", domain.ErrDetectionFailure, err)
	}

	req := openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: userPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    imageURL,
						Detail: openai.ImageURLDetailLow,
					}},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := d.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response: %w", domain.ErrDetectionFailure)
	}

	detected, err := parseLabels(resp.Choices[0].Message.Content)
	if err != nil {
		d.logger.Warn("Unparseable detection response",
			zap.String("key", key),
			zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		)
		return nil, err
	}

	return label.FilterDetected(detected, d.minConfidence, d.maxLabels), nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (d *Detector) HealthCheck(ctx context.Context) error {
	if _, err := d.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

type labelsResponse struct {
	Labels []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"labels"`
}

// parseLabels decodes the model answer, tolerating a markdown code fence around it.
func parseLabels(content string) ([]label.Detected, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var parsed labelsResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil {
		return nil, fmt.Errorf("decode labels: %w: %w", domain.ErrDetectionFailure, err)
	}

	out := make([]label.Detected, 0, len(parsed.Labels))
	for _, l := range parsed.Labels {
		if strings.TrimSpace(l.Name) == "" {
			continue
		}
		out = append(out, label.Detected{Name: l.Name, Confidence: l.Confidence})
	}
	return out, nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrDetectionFailure.
func parseAPIError(err error) error {
	wrap := domain.ErrDetectionFailure

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("vision API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("vision API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("vision API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("vision request failed: %w: %w", wrap, err)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
