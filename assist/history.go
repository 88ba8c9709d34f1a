package assist

import "github.com/Desarso/ideassist/models"

// buildHistory turns a panel's finished messages into prior chat turns for
// the next request. A turn is a user message answered by an assistant
// message. Failed exchanges and assistant messages without a question (fix
// suggestions) are skipped, so history always starts with a user turn and
// alternates. Only the last maxTurns turns are kept.
func buildHistory(msgs []Message, maxTurns int) []models.ChatMessage {
	if maxTurns <= 0 || len(msgs) == 0 {
		return nil
	}

	type turn struct{ question, answer string }
	var turns []turn
	for i := 0; i < len(msgs); i++ {
		if msgs[i].Role != RoleUser {
			continue
		}
		if i+1 >= len(msgs) {
			break
		}
		next := msgs[i+1]
		if next.Role == RoleAssistant && !next.Loading && next.Content != "" {
			turns = append(turns, turn{question: msgs[i].Content, answer: next.Content})
			i++
		}
	}

	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	out := make([]models.ChatMessage, 0, len(turns)*2)
	for _, t := range turns {
		out = append(out,
			models.ChatMessage{Role: models.RoleUser, Content: t.question},
			models.ChatMessage{Role: models.RoleAssistant, Content: t.answer},
		)
	}
	return out
}
