package rag

import (
	"strings"

	"github.com/tmc/langchaingo/llms"

	"document-chat/internal/models"
)

// Prompt is everything sent to the model for one question.
type Prompt struct {
	Instruction string
	Context     string
	History     []models.Turn
	Query       string
}

// Messages renders the prompt as a role-tagged conversation: the instruction
// and context block as the system message, every prior turn as a user and an
// assistant message, then the new question.
func (p Prompt) Messages() []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, 2+2*len(p.History))
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, p.system()))
	for _, turn := range p.History {
		messages = append(messages,
			llms.TextParts(llms.ChatMessageTypeHuman, turn.Question),
			llms.TextParts(llms.ChatMessageTypeAI, turn.Answer),
		)
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, p.Query))
}

func (p Prompt) system() string {
	return strings.TrimRight(p.Instruction, "\n") + "\n\n" + p.Context
}

// String is the flat form of the prompt, used for debug logging.
func (p Prompt) String() string {
	var b strings.Builder
	b.WriteString(p.system())
	for _, turn := range p.History {
		b.WriteString("\nQuestion: ")
		b.WriteString(turn.Question)
		b.WriteString("\nAnswer: ")
		b.WriteString(turn.Answer)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(p.Query)
	return b.String()
}

func retrievedContext(chunks []models.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return "Context:\n" + strings.Join(parts, models.ContextSeparator)
}

func defaultContext(info string) string {
	return "Default Info:\n" + info
}
