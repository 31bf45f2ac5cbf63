package plan

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/autodev/internal/errors"
)

// Parse recovers a Plan from raw planner output. Models wrap JSON in
// markdown fences, prepend chatter, emit trailing commas, or get cut off by
// the token limit, so parsing runs through progressively more forgiving
// stages:
//
//  1. parse the text directly
//  2. parse the contents of a fenced code block
//  3. parse the slice between the first '[' and the last ']'
//  4. retry stage 3 with trailing commas removed
//  5. recover the complete objects from a truncated array
//
// The first stage that yields a non-empty action list wins. If all fail, the
// result is a plan-parse error meant to be fed back to the planner verbatim.
func Parse(raw string) (Plan, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Plan{}, errors.NewPlanParseError("empty response", nil)
	}

	stages := []func(string) ([]Action, bool){
		parseDirect,
		parseFenced,
		parseBracketSlice,
		parseRepaired,
		parseTruncated,
	}

	for _, stage := range stages {
		if actions, ok := stage(text); ok {
			normalize(actions)
			p := Plan{Actions: actions}
			if err := p.Validate(); err != nil {
				return Plan{}, err
			}
			return p, nil
		}
	}

	return Plan{}, errors.NewPlanParseError(
		"no JSON array of actions found in response: "+excerpt(text), nil)
}

// DecodeArray applies the non-recovering stages (direct, fenced, bracket
// slice, trailing-comma repair) to decode any JSON array shape, for callers
// that expect something other than actions from the planner.
func DecodeArray(raw string, out any) error {
	text := strings.TrimSpace(raw)

	candidates := []string{text}
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	if slice, ok := bracketSlice(text); ok {
		candidates = append(candidates, slice)
	}

	var lastErr error
	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), out); err == nil {
			return nil
		} else {
			lastErr = err
		}
		repaired := trailingCommaObjRe.ReplaceAllString(c, "}")
		repaired = trailingCommaArrRe.ReplaceAllString(repaired, "]")
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return nil
		}
	}

	return errors.NewPlanParseError("no JSON array found in response: "+excerpt(text), lastErr)
}

func parseDirect(text string) ([]Action, bool) {
	var actions []Action
	if err := json.Unmarshal([]byte(text), &actions); err != nil {
		return nil, false
	}
	// An empty array is still a parse success; Validate reports it as an
	// empty plan, which is more precise feedback than a parse failure.
	return actions, true
}

var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

func parseFenced(text string) ([]Action, bool) {
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		if actions, ok := parseDirect(m[1]); ok {
			return actions, true
		}
	}
	return nil, false
}

func parseBracketSlice(text string) ([]Action, bool) {
	slice, ok := bracketSlice(text)
	if !ok {
		return nil, false
	}
	return parseDirect(slice)
}

var (
	trailingCommaObjRe = regexp.MustCompile(`,\s*}`)
	trailingCommaArrRe = regexp.MustCompile(`,\s*]`)
)

func parseRepaired(text string) ([]Action, bool) {
	slice, ok := bracketSlice(text)
	if !ok {
		slice = text
	}
	repaired := trailingCommaObjRe.ReplaceAllString(slice, "}")
	repaired = trailingCommaArrRe.ReplaceAllString(repaired, "]")
	return parseDirect(repaired)
}

// parseTruncated salvages whatever complete objects a cut-off array still
// contains. Brace matching is string-aware so braces inside instruction text
// do not break the scan.
func parseTruncated(text string) ([]Action, bool) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return nil, false
	}
	partial := text[start:]

	var actions []Action
	depth := 0
	objStart := -1
	inString := false
	escaped := false

	for i := 0; i < len(partial); i++ {
		c := partial[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					objStart = i
				}
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 && objStart >= 0 {
					var a Action
					if err := json.Unmarshal([]byte(partial[objStart:i+1]), &a); err == nil {
						actions = append(actions, a)
					}
					objStart = -1
				}
			}
		}
	}

	return actions, len(actions) > 0
}

func bracketSlice(text string) (string, bool) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// normalize lowercases action types so case variance from the model does
// not leak into dispatch.
func normalize(actions []Action) {
	for i := range actions {
		actions[i].Type = ActionType(strings.ToLower(strings.TrimSpace(string(actions[i].Type))))
	}
}

func excerpt(text string) string {
	const limit = 120
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
