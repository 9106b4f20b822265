// Package vertex detects image labels with a Gemini model on Vertex AI.
package vertex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/kailas-cloud/photodex/internal/domain"
	"github.com/kailas-cloud/photodex/internal/domain/label"
	"github.com/kailas-cloud/photodex/internal/transport/gcs"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

const systemPrompt = "You are an image labeling service. You list the objects, scenes, animals and " +
	"concepts visible in a photograph. You must output your response as a valid JSON object."

const userPrompt = `List the labels that describe this photograph.
Answer with JSON of the form {"labels":[{"name":"Dog","confidence":97.5}]}.
"name" is a short noun phrase in English; "confidence" is a number between 0 and 100.`

// Config holds the Vertex AI settings.
type Config struct {
	ProjectID     string
	Region        string
	Model         string
	MinConfidence float64
	MaxLabels     int
}

// Detector is a label detection engine that reads images straight from GCS.
type Detector struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	minConfidence float64
	maxLabels     int
}

// NewDetector creates a Gemini label detector.
func NewDetector(ctx context.Context, cfg *Config) (*Detector, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, errors.New("vertex: project id and region are required")
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}
	model := client.GenerativeModel(name)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}

	return &Detector{
		client:        client,
		model:         model,
		minConfidence: cfg.MinConfidence,
		maxLabels:     cfg.MaxLabels,
	}, nil
}

// Detect implements ingest.Detector. Labels are filtered by confidence and count.
func (d *Detector) Detect(ctx context.Context, bucket, key string) ([]label.Detected, error) {
	image := genai.FileData{
		MIMEType: imageMIMEType(key),
		FileURI:  gcs.ObjectURI(bucket, key),
	}

	resp, err := d.model.GenerateContent(ctx, image, genai.Text(userPrompt))
	if err != nil {
		return nil, fmt.Errorf("generate content: %w: %w", domain.ErrDetectionFailure, err)
	}

	detected, err := parseLabels(responseText(resp))
	if err != nil {
		return nil, err
	}
	return label.FilterDetected(detected, d.minConfidence, d.maxLabels), nil
}

// Close releases the underlying client.
func (d *Detector) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

type labelsResponse struct {
	Labels []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"labels"`
}

func parseLabels(text string) ([]label.Detected, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty model response: %w", domain.ErrDetectionFailure)
	}

	var parsed labelsResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
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

// imageMIMEType guesses the image type from the key extension; JPEG otherwise.
func imageMIMEType(key string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(key))); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}
