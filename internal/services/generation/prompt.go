package generation

import (
	"fmt"
	"strings"

	"github.com/unifiedui/mentalbot-service/internal/domain/models"
)

// ContextTurns is the number of trailing history turns rendered into the prompt.
const ContextTurns = 2

const promptExamples = `"Offer personalized, empathetic, and achievable solutions for users facing mental health challenges, ensuring responses are compassionate and provide actionable advice."

Input: "I've been feeling really overwhelmed and can't focus on my tasks."  
Output: "It's okay to feel overwhelmed. Start by taking a few moments to step away and breathe deeply. Breaking your tasks into smaller, manageable steps might help you regain focus. I can guide you through a simple prioritization exercise if you'd like."  

Input: "I keep doubting my abilities and feel like I'm not good enough."  
Output: "Self-doubt can be hard to face, but it doesn't define you. Reflect on moments where you overcame challenges—that's evidence of your capabilities. If you'd like, I can suggest ways to build your confidence gradually."  

Input: "I feel disconnected from everyone and don't know how to fix it."  
Output: "Feeling disconnected can be isolating, but small steps can help rebuild connections. Reaching out to a trusted friend for a short conversation or engaging in a group activity can make a difference. Let me know if you'd like suggestions for activities or conversation starters."  

Input: "I think I need a break, but I don't know how to justify it to my team."  
Output: "Taking a break is essential for your well-being. You could frame it to your team as a way to recharge and bring your best self to work. I can help you draft a supportive message to explain this to them if you'd like."  

`

// BuildPrompt renders the few-shot prompt for userText. Only the last
// ContextTurns turns of history are included; the prompt ends with an open
// Output cue for the model to complete.
func BuildPrompt(userText string, history []models.Turn) string {
	var b strings.Builder
	b.WriteString(promptExamples)

	b.WriteString("Previous Context: ")
	b.WriteString(renderContext(history))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Input: \"%s\"\n", userText)
	b.WriteString("Output:\"\n")

	return b.String()
}

func renderContext(history []models.Turn) string {
	if len(history) > ContextTurns {
		history = history[len(history)-ContextTurns:]
	}

	parts := make([]string, 0, len(history))
	for _, turn := range history {
		parts = append(parts, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}
	return strings.Join(parts, " ")
}
