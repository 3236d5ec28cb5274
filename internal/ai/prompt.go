package ai

import (
	"fmt"

	"github.com/sashabaranov/go-openai"

	"aarogya/internal/locale"
	"aarogya/internal/triage"
)

// ModelParams are the sampling settings sent with every completion request.
type ModelParams struct {
	Model       string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// DefaultModelParams matches the hosted Llama 3 8B Instruct deployment.
func DefaultModelParams() ModelParams {
	return ModelParams{
		Model:       "meta-llama/Meta-Llama-3-8B-Instruct",
		MaxTokens:   500,
		Temperature: 0.4,
		TopP:        0.9,
	}
}

// Assembler builds chat-completion requests from the triage tables. It never
// talks to the network.
type Assembler struct {
	tables *triage.Tables
	params ModelParams
}

func NewAssembler(tables *triage.Tables, params ModelParams) *Assembler {
	if tables == nil {
		tables = triage.DefaultTables()
	}
	return &Assembler{tables: tables, params: params}
}

// SystemPrompt joins the category prompt, the language instruction and the
// structural directive.
func (a *Assembler) SystemPrompt(category triage.Category, language string) string {
	return a.tables.Prompt(category) + "\n\n" +
		a.tables.Instruction(language) + "\n\n" +
		a.tables.Directive()
}

// BuildRequest builds the symptom analysis request
func (a *Assembler) BuildRequest(category triage.Category, language, symptoms string) openai.ChatCompletionRequest {
	return a.request(
		a.SystemPrompt(category, language),
		fmt.Sprintf("My symptoms are: %s", symptoms),
	)
}

// BuildTopicRequest builds the request for a health-topic explanation.
func (a *Assembler) BuildTopicRequest(title, language string) openai.ChatCompletionRequest {
	system := a.tables.TopicPrompt() + "\n\n" + a.tables.Instruction(language)
	user := fmt.Sprintf("Explain this health topic for %s speakers: %s",
		locale.Lookup(language).Name, title)
	return a.request(system, user)
}

func (a *Assembler) request(system, user string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: a.params.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: user,
			},
		},
		MaxTokens:   a.params.MaxTokens,
		Temperature: a.params.Temperature,
		TopP:        a.params.TopP,
	}
}
