package ai

import (
	"math"
	"strings"
)

// Sampling constants sent with every request.
const (
	TopP              = 0.9
	RepetitionPenalty = 1.1
	PadTokenID        = 50256
	MaxTemperature    = 0.9

	MinNewTokens = 80
	MaxNewTokens = 180

	ContextLines  = 4
	MaxReplyRunes = 600

	assistantMarker = "AI:"
	humanMarker     = "\nHuman"
	humanLabel      = "Human:"
)

// Tone prefixes selected by personality score.
const (
	EnthusiasticTone = "You are a friendly, enthusiastic AI assistant. "
	EngagingTone     = "You are a helpful and engaging AI. "
)

// Request is one generation call.
type Request struct {
	Prompt       string
	MaxNewTokens int
	Temperature  float64
}

// Parameters is the sampling block of the API payload.
type Parameters struct {
	MaxNewTokens      int     `json:"max_new_tokens"`
	Temperature       float64 `json:"temperature"`
	DoSample          bool    `json:"do_sample"`
	TopP              float64 `json:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	PadTokenID        int     `json:"pad_token_id"`
}

// Payload is the JSON body posted to the generation API.
type Payload struct {
	Inputs     string     `json:"inputs"`
	Parameters Parameters `json:"parameters"`
}

// Payload renders the request body.
func (r Request) Payload() Payload {
	return Payload{
		Inputs: r.Prompt,
		Parameters: Parameters{
			MaxNewTokens:      r.MaxNewTokens,
			Temperature:       r.Temperature,
			DoSample:          true,
			TopP:              TopP,
			RepetitionPenalty: RepetitionPenalty,
			PadTokenID:        PadTokenID,
		},
	}
}

// TonePrefix picks the framing for a personality score.
func TonePrefix(score float64) string {
	switch {
	case score > 0.9:
		return EnthusiasticTone
	case score > 0.8:
		return EngagingTone
	default:
		return ""
	}
}

// Temperature derives the sampling temperature from a personality score.
func Temperature(score float64) float64 {
	return math.Min(MaxTemperature, score+0.1)
}

// BuildPrompt renders a turn-structured prompt ending in an open assistant turn.
// Only the last ContextLines history lines are kept.
func BuildPrompt(history []string, score float64, userName, text string) string {
	if len(history) > ContextLines {
		history = history[len(history)-ContextLines:]
	}
	var b strings.Builder
	b.WriteString(TonePrefix(score))
	if len(history) > 0 {
		b.WriteString(strings.Join(history, "\n"))
		b.WriteString("\n")
	}
	b.WriteString("Human (")
	b.WriteString(userName)
	b.WriteString("): ")
	b.WriteString(text)
	b.WriteString("\n")
	b.WriteString(assistantMarker)
	return b.String()
}

// ParseReply extracts the assistant turn from generated text: everything after
// the last "AI:" marker, cut at the next human turn, with stray role labels
// removed and the result capped at MaxReplyRunes. Anything of three
// characters or fewer is ErrEmptyReply.
func ParseReply(generated string) (string, error) {
	i := strings.LastIndex(generated, assistantMarker)
	if i < 0 {
		return "", ErrEmptyReply
	}
	reply := strings.TrimSpace(generated[i+len(assistantMarker):])
	if j := strings.Index(reply, humanMarker); j >= 0 {
		reply = reply[:j]
	}
	reply = strings.TrimSpace(reply)
	reply = strings.TrimSpace(strings.ReplaceAll(reply, humanLabel, ""))
	if len([]rune(reply)) <= 3 {
		return "", ErrEmptyReply
	}
	if r := []rune(reply); len(r) > MaxReplyRunes {
		reply = string(r[:MaxReplyRunes])
	}
	return reply, nil
}
