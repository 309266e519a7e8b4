package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/kwiles/songferry/model"
)

// fallbackConfidence is assigned when the model call or its response is
// unusable; one bad response must never abort a batch
const fallbackConfidence = 0.3

// AISelector asks a chat-completion model to pick the best candidate.
// The strategy is best effort and non-deterministic: every failure
// (transport, malformed JSON, out-of-range index, timeout) degrades to
// the first candidate at fallbackConfidence instead of surfacing an
// error. Only the contract is guaranteed — a well-formed Selection comes
// back for any input.
type AISelector struct {
	Client  *openai.Client
	Model   string
	Limiter *rate.Limiter
	Timeout time.Duration
}

// aiDecision mirrors the strict JSON shape the prompt demands
type aiDecision struct {
	BestMatchIndex int     `json:"bestMatchIndex"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

func (s *AISelector) Select(ctx context.Context, source model.Track, candidates []model.Track) Selection {
	selection, err := s.ask(ctx, source, candidates)
	if err != nil {
		slog.Warn("AI selection failed, falling back to first candidate", "artist", source.Artist, "title", source.Title, "error", err)
		return Selection{
			Index:      0,
			Confidence: fallbackConfidence,
			Reasoning:  "fallback: " + err.Error(),
		}
	}
	return selection
}

var _ Selector = &AISelector{}

func (s *AISelector) ask(ctx context.Context, source model.Track, candidates []model.Track) (Selection, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return Selection{}, err
		}
	}

	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(source, candidates)},
		},
	})
	if err != nil {
		return Selection{}, fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Selection{}, fmt.Errorf("completion returned no choices")
	}

	return parseDecision(resp.Choices[0].Message.Content, len(candidates))
}

// buildPrompt serializes the source track and its numbered candidates
// into an instruction demanding a strict JSON decision
func buildPrompt(source model.Track, candidates []model.Track) string {
	var sb strings.Builder
	sb.WriteString("You are matching songs between music platforms.\n")
	fmt.Fprintf(&sb, "Source track: %q by %q, duration %ds.\n\nCandidates:\n", source.Title, source.Artist, source.DurationMs/1000)

	for i, candidate := range candidates {
		fmt.Fprintf(&sb, "%d. %q by %q, duration %ds\n", i, candidate.Title, candidate.Artist, candidate.DurationMs/1000)
	}

	sb.WriteString("\nWhich candidate is the same song as the source track?\n")
	sb.WriteString(`Answer with strict JSON only: {"bestMatchIndex": <index, or -1 if none matches>, "confidence": <0.0 to 1.0>, "reasoning": "<one sentence>"}`)
	return sb.String()
}

// parseDecision extracts the first JSON object from the raw model output,
// tolerating surrounding prose and markdown fencing. An out-of-range
// index is a hard error for this call.
func parseDecision(raw string, candidateCount int) (Selection, error) {
	object, err := firstJSONObject(raw)
	if err != nil {
		return Selection{}, err
	}

	var decision aiDecision
	if err := json.Unmarshal([]byte(object), &decision); err != nil {
		return Selection{}, fmt.Errorf("malformed decision JSON: %w", err)
	}

	if decision.BestMatchIndex < -1 || decision.BestMatchIndex >= candidateCount {
		return Selection{}, fmt.Errorf("decision index %d out of range for %d candidates", decision.BestMatchIndex, candidateCount)
	}

	confidence := decision.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return Selection{
		Index:      decision.BestMatchIndex,
		Confidence: confidence,
		Reasoning:  decision.Reasoning,
	}, nil
}

// firstJSONObject returns the first balanced {...} block in s
func firstJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", fmt.Errorf("no JSON object in model output")
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unterminated JSON object in model output")
}
