package classifier

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"google.golang.org/genai"

	"github.com/muhammadolammi/jobmatchcapture/internal/capture"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model whether a frame shows the requested pose.
type Gemini struct {
	model  string
	models contentGenerator
}

// NewGemini creates a Gemini API client for model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{model: model, models: client.Models}, nil
}

func (g *Gemini) Evaluate(ctx context.Context, frame image.Image, challenge capture.Challenge) (bool, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 80}); err != nil {
		return false, fmt.Errorf("encode frame: %w", err)
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(buf.Bytes(), capture.MimeJPEG),
			genai.NewPartFromText(posePrompt(challenge)),
		}, genai.RoleUser),
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return false, fmt.Errorf("gemini generate: %w", err)
	}
	return parseVerdict(resp.Text())
}

func posePrompt(c capture.Challenge) string {
	pose := c.Description
	if c.Gesture != "" {
		pose = fmt.Sprintf("%s (%s)", c.Description, c.Gesture)
	}
	return fmt.Sprintf(
		"This is a frame from a front-facing webcam during a liveness check. "+
			"Is a real person clearly holding up one hand showing this gesture: %s? "+
			"Answer with exactly one word: yes or no.", pose)
}

// parseVerdict reads a yes/no answer from the first word of text.
func parseVerdict(text string) (bool, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) > 0 {
		switch strings.Trim(fields[0], ".,!\"'*") {
		case "yes":
			return true, nil
		case "no":
			return false, nil
		}
	}
	return false, fmt.Errorf("unexpected model answer %q", text)
}
