package breed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/dynamosa/dynamosa/internal/logger"
)

// llmCase is the JSON shape an LLMBreeder expects back from the model:
// a subprocess invocation plus its claimed statement count, mirroring
// the teacher's internal/llm.parseSeedFromResponse convention of
// extracting a structured payload out of free-form chat completion
// text rather than trusting the model's prose directly.
type llmCase struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
	Size uint32   `json:"size"`
}

// LLMBreeder implements search.Breeder by asking a chat-completion model
// to propose new or mutated test invocations, in place of
// RandomBreeder's Generator. It is grounded on the teacher's
// internal/llm.DeepSeekClient request/response shape, rehosted onto
// github.com/sashabaranov/go-openai instead of a hand-rolled HTTP client
// (the teacher's client predates that dependency being vendored; the
// rest of the pack already uses it for exactly this kind of chat
// completion call).
type LLMBreeder struct {
	client       *openai.Client
	model        string
	temperature  float32
	systemPrompt string
}

// NewLLMBreeder constructs an LLMBreeder. systemPrompt should describe
// the program under test well enough that the model can propose
// syntactically valid invocations; dynamosa does not inspect or
// validate its content.
func NewLLMBreeder(apiKey, model, systemPrompt string, temperature float32) *LLMBreeder {
	return &LLMBreeder{
		client:       openai.NewClient(apiKey),
		model:        model,
		temperature:  temperature,
		systemPrompt: systemPrompt,
	}
}

// InitialPopulation implements search.Breeder by asking for size
// independent test cases in one completion call.
func (b *LLMBreeder) InitialPopulation(size int) []TestCase {
	prompt := fmt.Sprintf("Propose %d new, diverse test invocations as a JSON array of {\"name\":string,\"args\":[string],\"size\":int}. Return only the JSON array.", size)
	cases, err := b.complete(prompt)
	if err != nil {
		logger.Warn("breed: llm initial population request failed: %v", err)
		return nil
	}
	return cases
}

// Breed implements search.Breeder by asking the model to mutate every
// surviving parent in one completion call, describing each parent's
// invocation so the model has something concrete to perturb.
func (b *LLMBreeder) Breed(parents []TestCase) []TestCase {
	if len(parents) == 0 {
		return nil
	}

	var described []string
	for _, p := range parents {
		c, ok := p.(*Case)
		if !ok {
			continue
		}
		described = append(described, fmt.Sprintf("%s %s", c.Name, strings.Join(c.Args, " ")))
	}
	if len(described) == 0 {
		return nil
	}

	prompt := fmt.Sprintf(
		"Here are %d existing test invocations, one per line:\n%s\nPropose one mutated variant of each, as a JSON array of {\"name\":string,\"args\":[string],\"size\":int}. Return only the JSON array.",
		len(described), strings.Join(described, "\n"),
	)
	cases, err := b.complete(prompt)
	if err != nil {
		logger.Warn("breed: llm breed request failed: %v", err)
		return nil
	}
	return cases
}

func (b *LLMBreeder) complete(prompt string) ([]TestCase, error) {
	req := openai.ChatCompletionRequest{
		Model:       b.model,
		Temperature: b.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: b.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := b.client.CreateChatCompletion(context.Background(), req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return parseLLMCases(resp.Choices[0].Message.Content)
}

// parseLLMCases extracts the JSON array of proposed cases from a
// completion's raw text, tolerating a surrounding code fence the way
// chat models routinely add one around JSON output.
func parseLLMCases(content string) ([]TestCase, error) {
	body := strings.TrimSpace(content)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	var raw []llmCase
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("parsing proposed cases: %w", err)
	}

	out := make([]TestCase, 0, len(raw))
	for _, r := range raw {
		out = append(out, &Case{Name: r.Name, Args: r.Args, Sz: r.Size})
	}
	return out, nil
}
