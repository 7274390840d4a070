package rerank

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ranking is one scored candidate in the model's response. ResultID indexes
// into the candidate list the prompt presented.
type ranking struct {
	ResultID    int     `json:"resultId"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation,omitempty"`
}

var (
	errNoRankings = errors.New("rerank: no rankings in response")

	fencedBlockRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	bracketRe     = regexp.MustCompile(`\[[\s\S]*\]`)
)

// parseRankings extracts the ranking array from whatever the model returned.
// Models wrap the array in objects, code fences, or prose often enough that a
// single json.Unmarshal is not good enough; strategies are tried in order of
// strictness.
func parseRankings(content string) ([]ranking, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errNoRankings
	}

	// Strategy 1: the content is the array.
	if rankings, err := decodeArray(content); err == nil {
		return rankings, nil
	}

	// Strategy 2: an object with exactly one array-valued field.
	if rankings, err := decodeWrappedArray(content); err == nil {
		return rankings, nil
	}

	// Strategy 3: a fenced code block containing either of the above.
	if m := fencedBlockRe.FindStringSubmatch(content); m != nil {
		inner := strings.TrimSpace(m[1])
		if rankings, err := decodeArray(inner); err == nil {
			return rankings, nil
		}
		if rankings, err := decodeWrappedArray(inner); err == nil {
			return rankings, nil
		}
	}

	// Strategy 4: the first bracket-delimited array anywhere in the text.
	if m := bracketRe.FindString(content); m != "" {
		if rankings, err := decodeArray(m); err == nil {
			return rankings, nil
		}
	}

	return nil, errNoRankings
}

func decodeArray(s string) ([]ranking, error) {
	var rankings []ranking
	if err := json.Unmarshal([]byte(s), &rankings); err != nil {
		return nil, err
	}
	if len(rankings) == 0 {
		return nil, errNoRankings
	}
	return rankings, nil
}

func decodeWrappedArray(s string) ([]ranking, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	var arrays []json.RawMessage
	for _, raw := range obj {
		if len(raw) > 0 && raw[0] == '[' {
			arrays = append(arrays, raw)
		}
	}
	if len(arrays) != 1 {
		return nil, errNoRankings
	}
	return decodeArray(string(arrays[0]))
}
