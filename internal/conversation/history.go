package conversation

import "unicode/utf8"

const (
	// DefaultHistoryTurns is the sliding window size of the transcript.
	DefaultHistoryTurns = 8
	// DefaultTurnChars is the per-turn character budget, ellipsis included.
	DefaultTurnChars = 200
	// DefaultContextTurns is how many recent turns accompany a general chat
	// message to the language model.
	DefaultContextTurns = 4

	ellipsis = "…"
)

// Turn is one transcript entry.
type Turn struct {
	Role string `json:"role" dynamodbav:"role"`
	Text string `json:"text" dynamodbav:"text"`
}

// HistoryPolicy bounds the transcript.
type HistoryPolicy struct {
	MaxTurns int
	MaxChars int
}

// DefaultHistoryPolicy keeps the last 8 turns of at most 200 characters.
func DefaultHistoryPolicy() HistoryPolicy {
	return HistoryPolicy{MaxTurns: DefaultHistoryTurns, MaxChars: DefaultTurnChars}
}

// Append adds a user/assistant pair and trims to the last MaxTurns turns,
// dropping the oldest first.
func (p HistoryPolicy) Append(transcript []Turn, userText, replyText string) []Turn {
	out := make([]Turn, 0, len(transcript)+2)
	out = append(out, transcript...)
	out = append(out,
		Turn{Role: ChatRoleUser, Text: truncate(userText, p.MaxChars)},
		Turn{Role: ChatRoleAssistant, Text: truncate(replyText, p.MaxChars)},
	)
	if p.MaxTurns > 0 && len(out) > p.MaxTurns {
		out = out[len(out)-p.MaxTurns:]
	}
	return out
}

// Recent returns at most n of the newest turns.
func Recent(transcript []Turn, n int) []Turn {
	if n <= 0 || len(transcript) == 0 {
		return nil
	}
	if len(transcript) > n {
		transcript = transcript[len(transcript)-n:]
	}
	return append([]Turn(nil), transcript...)
}

// truncate caps text at max runes, replacing the tail with an ellipsis.
func truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max-1]) + ellipsis
}
