package remoteclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ParsedHint is the opaque advisory payload returned by the NLP
// parsing endpoint. Neither the Pattern Analyzer nor the Batch Executor
// depends on its presence — both are correct whether or not a
// NoteParser is configured.
type ParsedHint struct {
	UnitGuess string  `json:"unit_guess,omitempty"`
	FoodGuess string  `json:"food_guess,omitempty"`
	Quantity  float64 `json:"quantity,omitempty"`
}

// NoteParser is the opaque parse_note collaborator. Two implementations
// are provided below: one that calls the recipe service's own endpoint,
// and one that calls an OpenAI chat-completion model directly.
type NoteParser interface {
	ParseNote(ctx context.Context, text string) (ParsedHint, error)
}

// httpNoteParser calls POST /parser/ingredients on the recipe service
// itself — the default, always-available implementation.
type httpNoteParser struct {
	client *Client
}

// ParseNote is also exposed as a Client method for callers that don't
// need to swap the implementation.
func (c *Client) ParseNote(ctx context.Context, text string) (ParsedHint, error) {
	if c.parser != nil {
		return c.parser.ParseNote(ctx, text)
	}
	return (&httpNoteParser{client: c}).ParseNote(ctx, text)
}

func (p *httpNoteParser) ParseNote(ctx context.Context, text string) (ParsedHint, error) {
	var hint ParsedHint
	spec := requestSpec{method: "POST", path: "/parser/ingredients", body: map[string]string{"text": text}}
	if callErr := p.client.doWithRetry(ctx, spec, &hint); callErr != nil {
		return ParsedHint{}, callErr
	}
	return hint, nil
}

// OpenAINoteParser backs parse_note with a chat-completion model instead
// of the recipe service's own NLP endpoint, as an advisory
// ingredient-note parser.
type OpenAINoteParser struct {
	client *openai.Client
	model  string
}

// NewOpenAINoteParser constructs a NoteParser backed by OpenAI. Pass the
// result as Options.Parser to New.
func NewOpenAINoteParser(apiKey, model string) *OpenAINoteParser {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAINoteParser{client: openai.NewClient(apiKey), model: model}
}

const noteParsePrompt = `Extract the unit of measure and the food name from this ` +
	`recipe ingredient note. Respond with strict JSON: {"unit_guess":"...",` +
	`"food_guess":"...","quantity":0}. Leave a field empty if it cannot be ` +
	`determined. Note: `

func (p *OpenAINoteParser) ParseNote(ctx context.Context, text string) (ParsedHint, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: noteParsePrompt + text},
		},
	})
	if err != nil {
		return ParsedHint{}, fmt.Errorf("openai note parse failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ParsedHint{}, fmt.Errorf("openai returned no choices for note parse")
	}

	var hint ParsedHint
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &hint); err != nil {
		return ParsedHint{}, fmt.Errorf("failed to parse note-parse JSON: %w", err)
	}
	return hint, nil
}
