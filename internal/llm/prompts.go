package llm

import (
	"fmt"
	"strings"

	"github.com/cyberlab/helpdesk/internal/domain"
)

const systemPromptTemplate = `You are a help desk assistant for the CyberLab Training Platform.

CRITICAL RULES - YOU MUST FOLLOW THESE EXACTLY:

1. Answer ONLY using the provided KB context below
2. NEVER invent commands, URLs, procedures, or policies
3. If the KB does not cover the issue, explicitly say: "This issue is not covered in the knowledge base."
4. Always cite KB document IDs when providing information
5. Do not use external knowledge or make assumptions
6. If you need clarifying information, ask specific questions

USER ROLE: %s

KNOWLEDGE BASE CONTEXT:
%s

---

Based ONLY on the above KB context, provide a helpful, accurate response to the user's question.
If the KB does not contain the answer, say so explicitly and suggest escalation.`

// buildSystemPrompt renders the resolved fragments into the grounding
// prompt. Callers must never pass anything beyond the resolved set.
func buildSystemPrompt(fragments []domain.FragmentWithScore, role domain.UserRole) string {
	var parts []string
	for _, f := range fragments {
		heading := "Content"
		if len(f.HeadingPath) > 0 {
			heading = strings.Join(f.HeadingPath, " > ")
		}
		parts = append(parts, fmt.Sprintf("[Document: %s]\n[Section: %s]\n%s", f.DocumentID, heading, f.Text))
	}
	return fmt.Sprintf(systemPromptTemplate, role, strings.Join(parts, "\n\n---\n\n"))
}

// historyMessages converts prior turns into alternating chat messages,
// most recent last, capped to the last few turns.
func historyMessages(history []domain.Turn, max int) []message {
	if len(history) > max {
		history = history[len(history)-max:]
	}
	var msgs []message
	for _, t := range history {
		msgs = append(msgs, message{Role: "user", Content: t.UserMessage})
		if t.Answer != "" {
			msgs = append(msgs, message{Role: "assistant", Content: t.Answer})
		}
	}
	return msgs
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
