package aiassist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DEFAULT_MODEL = "gemini-1.5-flash"

const guidancePrompt = `You are an emergency first-aid assistant. A person is in the following situation:

%v

Respond with ONLY a JSON object in this exact shape, no other text:
{"firstAidSteps": ["step 1", "step 2"], "safetyTips": ["tip 1"], "beforeHelpArrives": ["action 1"]}

Keep each item short & actionable. Always remind the person to call local emergency services.`

// Guidance holds AI-generated first-aid instructions for an ongoing
// emergency
type Guidance struct {
	FirstAidSteps     []string `json:"firstAidSteps"`
	SafetyTips        []string `json:"safetyTips"`
	BeforeHelpArrives []string `json:"beforeHelpArrives"`
}

type Client struct {
	client   *genai.Client
	model    string
	testMode bool
}

func NewClient(ctx context.Context, apiKey, model string, testMode bool) (*Client, error) {
	if model == "" {
		model = DEFAULT_MODEL
	}

	if testMode || apiKey == "" {
		return &Client{model: model, testMode: true}, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &Client{client: client, model: model}, nil
}

// FirstAidGuidance asks the model for first-aid steps matching the
// emergency description
func (c *Client) FirstAidGuidance(ctx context.Context, description string) (*Guidance, error) {
	if c.testMode {
		return fallbackGuidance(), nil
	}

	model := c.client.GenerativeModel(c.model)
	response, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(guidancePrompt, description)))
	if err != nil {
		return nil, err
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from model")
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			text.WriteString(string(textPart))
		}
	}

	return parseGuidance(text.String())
}

func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// parseGuidance decodes the model output, tolerating markdown code
// fences around the JSON
func parseGuidance(text string) (*Guidance, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	guidance := Guidance{}
	if err := json.Unmarshal([]byte(text), &guidance); err != nil {
		return nil, fmt.Errorf("unable to parse guidance: %v", err)
	}

	if len(guidance.FirstAidSteps) == 0 {
		return nil, fmt.Errorf("guidance has no first-aid steps")
	}

	return &guidance, nil
}

func fallbackGuidance() *Guidance {
	return &Guidance{
		FirstAidSteps: []string{
			"Call your local emergency number immediately",
			"Stay calm & keep the affected person still",
		},
		SafetyTips: []string{
			"Move away from any immediate danger",
		},
		BeforeHelpArrives: []string{
			"Keep your phone charged & stay reachable",
		},
	}
}
