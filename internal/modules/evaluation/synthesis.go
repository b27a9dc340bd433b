package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/cortex-backend/internal/domain"
)

const FallbackFeedback = "Your response shows solid thinking. Consider exploring edge cases and scalability implications further."

const fallbackScore = 5.0

// FallbackScores is the neutral vector used when synthesis output is unusable.
func FallbackScores() domain.ScoreBreakdown {
	return domain.ScoreBreakdown{
		Clarity:              fallbackScore,
		ConstraintsAwareness: fallbackScore,
		TradeOffReasoning:    fallbackScore,
		FailureAnticipation:  fallbackScore,
		Simplicity:           fallbackScore,
	}
}

var errNoJSONObject = errors.New("no JSON object in synthesis output")

type synthesisPayload struct {
	Feedback string                     `json:"feedback"`
	Scores   map[string]json.RawMessage `json:"scores"`
}

var dimensions = []string{
	"clarity",
	"constraints_awareness",
	"trade_off_reasoning",
	"failure_anticipation",
	"simplicity",
}

// parseSynthesis extracts feedback and scores from synthesizer output. Scores
// are also accepted at the top level. All five dimensions must be present;
// values outside [0,10] are clamped.
func parseSynthesis(raw string) (string, domain.ScoreBreakdown, error) {
	body, err := ExtractJSONObject(raw)
	if err != nil {
		return "", domain.ScoreBreakdown{}, err
	}

	var p synthesisPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return "", domain.ScoreBreakdown{}, fmt.Errorf("decode synthesis: %w", err)
	}
	if len(p.Scores) == 0 {
		// Flat form: the dimensions sit next to feedback.
		if err := json.Unmarshal([]byte(body), &p.Scores); err != nil {
			return "", domain.ScoreBreakdown{}, fmt.Errorf("decode synthesis: %w", err)
		}
	}

	vals := make([]float64, len(dimensions))
	for i, dim := range dimensions {
		var v *float64
		if raw, ok := p.Scores[dim]; ok {
			if err := json.Unmarshal(raw, &v); err != nil {
				return "", domain.ScoreBreakdown{}, fmt.Errorf("score %q: %w", dim, err)
			}
		}
		if v == nil {
			return "", domain.ScoreBreakdown{}, fmt.Errorf("missing score %q", dim)
		}
		if math.IsNaN(*v) {
			return "", domain.ScoreBreakdown{}, fmt.Errorf("score %q is NaN", dim)
		}
		vals[i] = clamp(*v, 0, 10)
	}
	return strings.TrimSpace(p.Feedback), domain.ScoreBreakdown{
		Clarity:              vals[0],
		ConstraintsAwareness: vals[1],
		TradeOffReasoning:    vals[2],
		FailureAnticipation:  vals[3],
		Simplicity:           vals[4],
	}, nil
}

// ExtractJSONObject strips markdown fences and returns the outermost {...}.
func ExtractJSONObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", errNoJSONObject
	}
	return s[start : end+1], nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
