package decision

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"arena/pkg/arenaerr"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:[a-zA-Z]*\\n)?(.*?)```")

// rawDecision mirrors the JSON shape a model is expected to emit for one
// symbol; decoded leniently, then coerced and constrained.
type rawDecision struct {
	Symbol       string   `json:"symbol"`
	Action       string   `json:"action"`
	Confidence   float64  `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
	PositionSize float64  `json:"positionSize"`
	StopLoss     *float64 `json:"stopLoss,omitempty"`
	TakeProfit   *float64 `json:"takeProfit,omitempty"`
}

// Validator implements the ResponseValidator: sanitize raw text, parse as
// single-object or multi-asset-array JSON, coerce, then constrain into a
// Bundle unique by symbol.
type Validator struct {
	minReasoningLen int
	maxReasoningLen int
}

// NewValidator constructs a Validator with the spec's reasoning-length
// bounds of [10, 2000] characters.
func NewValidator() *Validator {
	return &Validator{minReasoningLen: 10, maxReasoningLen: 2000}
}

// Parse sanitizes, parses, coerces, and constrains raw model output into a
// Bundle. It fails with arenaerr.KindValidationFailed on any violation and
// arenaerr.KindBadResponse if the text cannot be parsed as JSON at all.
func (v *Validator) Parse(raw string) (Bundle, error) {
	sanitized := sanitize(raw)
	if sanitized == "" {
		return nil, arenaerr.New(arenaerr.KindBadResponse, "empty response after sanitization")
	}

	var rawDecisions []rawDecision
	trimmed := strings.TrimSpace(sanitized)
	switch {
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal([]byte(trimmed), &rawDecisions); err != nil {
			return nil, arenaerr.Wrap(arenaerr.KindBadResponse, err, "parse multi-asset array")
		}
	case strings.HasPrefix(trimmed, "{"):
		var single rawDecision
		if err := json.Unmarshal([]byte(trimmed), &single); err != nil {
			return nil, arenaerr.Wrap(arenaerr.KindBadResponse, err, "parse single decision object")
		}
		rawDecisions = []rawDecision{single}
	default:
		return nil, arenaerr.New(arenaerr.KindBadResponse, "response is neither a JSON object nor array")
	}

	bundle := make(Bundle, 0, len(rawDecisions))
	seen := make(map[string]bool, len(rawDecisions))
	for i, rd := range rawDecisions {
		d, err := coerceAndConstrain(rd, v.minReasoningLen, v.maxReasoningLen)
		if err != nil {
			return nil, arenaerr.Wrap(arenaerr.KindValidationFailed, err, "decision[%d]", i)
		}
		if seen[d.Symbol] {
			return nil, arenaerr.New(arenaerr.KindValidationFailed, "decision[%d]: duplicate symbol %q in bundle", i, d.Symbol)
		}
		seen[d.Symbol] = true
		bundle = append(bundle, d)
	}
	return bundle, nil
}

// sanitize keeps only a fenced code block's content if present, then trims
// to the outermost JSON container (object or array), then trims whitespace.
func sanitize(raw string) string {
	text := raw
	if m := fencedBlockPattern.FindStringSubmatch(raw); m != nil {
		text = m[1]
	}

	text = strings.TrimSpace(text)

	openIdx, closeIdx := -1, -1
	if firstBrace := strings.IndexByte(text, '{'); firstBrace != -1 {
		if lastBrace := strings.LastIndexByte(text, '}'); lastBrace > firstBrace {
			openIdx, closeIdx = firstBrace, lastBrace
		}
	}
	if firstBracket := strings.IndexByte(text, '['); firstBracket != -1 {
		if lastBracket := strings.LastIndexByte(text, ']'); lastBracket > firstBracket {
			if openIdx == -1 || firstBracket < openIdx {
				openIdx, closeIdx = firstBracket, lastBracket
			}
		}
	}
	if openIdx == -1 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[openIdx : closeIdx+1])
}

func coerceAndConstrain(rd rawDecision, minReason, maxReason int) (Decision, error) {
	action := Action(strings.ToUpper(strings.TrimSpace(rd.Action)))
	switch action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return Decision{}, fmt.Errorf("unknown action %q", rd.Action)
	}

	symbol := strings.TrimSpace(rd.Symbol)
	if symbol == "" {
		return Decision{}, fmt.Errorf("symbol is required")
	}

	positionSize := rd.PositionSize
	if action == ActionHold {
		// Coerce, don't fail: HOLD always implies zero size.
		positionSize = 0
	}
	if positionSize < 0 || positionSize > 1 {
		return Decision{}, fmt.Errorf("positionSize %v out of bounds [0,1]", positionSize)
	}

	if rd.Confidence < 0 || rd.Confidence > 1 {
		return Decision{}, fmt.Errorf("confidence %v out of bounds [0,1]", rd.Confidence)
	}

	reasonLen := len(strings.TrimSpace(rd.Reasoning))
	if reasonLen < minReason || reasonLen > maxReason {
		return Decision{}, fmt.Errorf("reasoning length %d out of bounds [%d,%d]", reasonLen, minReason, maxReason)
	}

	if rd.StopLoss != nil && rd.TakeProfit != nil && *rd.StopLoss >= *rd.TakeProfit {
		return Decision{}, fmt.Errorf("stopLoss %v must be < takeProfit %v", *rd.StopLoss, *rd.TakeProfit)
	}

	return Decision{
		Symbol:       symbol,
		Action:       action,
		Confidence:   rd.Confidence,
		Reasoning:    rd.Reasoning,
		PositionSize: positionSize,
		StopLoss:     rd.StopLoss,
		TakeProfit:   rd.TakeProfit,
	}, nil
}
