package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/bedrockruntime"
	"github.com/aws/aws-sdk-go/service/bedrockruntime/bedrockruntimeiface"
)

// Modes accepted by the portal assistant. Clinical, voice and text all take
// a plain prompt; image takes a base64-encoded lab report.
const (
	ModeClinical = "clinical"
	ModeVoice    = "voice"
	ModeText     = "text"
	ModeImage    = "image"
)

const (
	defaultTextModelID  = "amazon.nova-lite-v1:0"
	defaultImageModelID = "amazon.nova-2-lite-v1:0"
)

func textModelID() string {
	if id := os.Getenv("BEDROCK_TEXT_MODEL"); id != "" {
		return id
	}
	return defaultTextModelID
}

func imageModelID() string {
	if id := os.Getenv("BEDROCK_IMAGE_MODEL"); id != "" {
		return id
	}
	return defaultImageModelID
}

const systemPrompt = `
You are a Clinical Laboratory Assistant providing detailed test procedures.

MANDATORY FORMAT:

1. TEST NAME

2. SPECIMEN REQUIREMENTS
3. COLLECTION PROCEDURE
4. HANDLING & STORAGE
5. PROCESSING STEPS
6. PRECAUTIONS

Rules:
- Exact measurements only
- NO diagnosis
- NO treatment
`

const imagePrompt = `
You are a Clinical Laboratory Report Analyzer.

Provide:
1. REPORT SUMMARY
2. INTERPRETATION
3. DIETARY RECOMMENDATIONS
4. LIFESTYLE RECOMMENDATIONS
5. FOLLOW-UP ADVICE

IMPORTANT:
- Educational only
- Advise consulting a healthcare professional
`

// Reply is the parsed model output returned to the endpoint layer.
type Reply struct {
	Answer     string
	TokenCount int
	ModelID    string
}

type novaImageSource struct {
	Bytes string `json:"bytes"`
}

type novaImage struct {
	Format string          `json:"format"`
	Source novaImageSource `json:"source"`
}

type novaContent struct {
	Text  string     `json:"text,omitempty"`
	Image *novaImage `json:"image,omitempty"`
}

type novaMessage struct {
	Role    string        `json:"role"`
	Content []novaContent `json:"content"`
}

type novaInferenceConfig struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p,omitempty"`
}

type novaRequest struct {
	Messages        []novaMessage       `json:"messages"`
	InferenceConfig novaInferenceConfig `json:"inferenceConfig"`
}

type novaResponse struct {
	Output struct {
		Message struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
	} `json:"output"`
	Usage struct {
		OutputTokens int `json:"outputTokens"`
	} `json:"usage"`
}

// ValidMode reports whether mode is one the assistant can serve.
func ValidMode(mode string) bool {
	switch mode {
	case ModeClinical, ModeVoice, ModeText, ModeImage:
		return true
	}
	return false
}

// AskText sends a laboratory test question to the text model and returns the
// trimmed answer.
func AskText(ctx context.Context, client bedrockruntimeiface.BedrockRuntimeAPI, text string) (Reply, error) {
	prompt := fmt.Sprintf("%s\n\nLaboratory Test Requested:\n%s", systemPrompt, text)

	req := novaRequest{
		Messages: []novaMessage{
			{
				Role:    "user",
				Content: []novaContent{{Text: prompt}},
			},
		},
		InferenceConfig: novaInferenceConfig{
			MaxNewTokens: 1500,
			Temperature:  0.2,
			TopP:         0.9,
		},
	}

	return invoke(ctx, client, textModelID(), req)
}

// AnalyzeImage sends a base64-encoded lab report image to the vision model.
// A data URI prefix, if present, is stripped before sending.
func AnalyzeImage(ctx context.Context, client bedrockruntimeiface.BedrockRuntimeAPI, imageB64 string) (Reply, error) {
	if idx := strings.Index(imageB64, ","); idx >= 0 {
		imageB64 = imageB64[idx+1:]
	}

	req := novaRequest{
		Messages: []novaMessage{
			{
				Role: "user",
				Content: []novaContent{
					{Image: &novaImage{
						Format: "png",
						Source: novaImageSource{Bytes: imageB64},
					}},
					{Text: imagePrompt},
				},
			},
		},
		InferenceConfig: novaInferenceConfig{
			MaxNewTokens: 2000,
			Temperature:  0.3,
		},
	}

	return invoke(ctx, client, imageModelID(), req)
}

func invoke(ctx context.Context, client bedrockruntimeiface.BedrockRuntimeAPI, modelID string, req novaRequest) (Reply, error) {
	if client == nil {
		return Reply{}, fmt.Errorf("bedrock client not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to marshal model request: %w", err)
	}

	out, err := client.InvokeModelWithContext(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("model invocation failed: %w", err)
	}

	var parsed novaResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return Reply{}, fmt.Errorf("failed to parse model response: %w", err)
	}
	if len(parsed.Output.Message.Content) == 0 {
		return Reply{}, fmt.Errorf("model returned no content")
	}

	return Reply{
		Answer:     strings.TrimSpace(parsed.Output.Message.Content[0].Text),
		TokenCount: parsed.Usage.OutputTokens,
		ModelID:    modelID,
	}, nil
}
