// Package parsers turns free-form model output into a model.ChatSummary.
package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ai-anxiety-coach/server/internal/coach/classifier"
	"github.com/ai-anxiety-coach/server/internal/coach/model"
	logx "github.com/ai-anxiety-coach/server/pkg/logger"
)

const (
	maxRepairLen     = 128 * 1024
	defaultIntensity = 6
	minIntensity     = 0
	maxIntensity     = 10
	fence            = "```"
)

var ErrNotObject = errors.New("model output is not a JSON object")

// ExtractJSONObject pulls a single JSON object out of raw model output.
// Code fence lines are dropped, the text between the first '{' and the last
// '}' is decoded, and an almost-JSON object of at most 128 KiB gets one
// repair attempt.
func ExtractJSONObject(raw string) (obj map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "summary_parser").Msgf("panic recovered: %v", r)
			obj, err = nil, fmt.Errorf("summary parser panic: %v", r)
		}
	}()

	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, fence) {
		lines := strings.Split(text, "\n")
		kept := lines[:0]
		for _, line := range lines {
			if !strings.HasPrefix(strings.TrimSpace(line), fence) {
				kept = append(kept, line)
			}
		}
		text = strings.TrimSpace(strings.Join(kept, "\n"))
	}

	candidate := text
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start != -1 && end > start {
		candidate = text[start : end+1]
	}

	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		if !strings.HasPrefix(candidate, "{") {
			return nil, fmt.Errorf("decode model output: %w", err)
		}
		if len(candidate) > maxRepairLen {
			logx.Warn().
				Str("component", "summary_parser").
				Int("max_len", maxRepairLen).
				Int("orig_len", len(candidate)).
				Msg("malformed output too large to repair")
			return nil, fmt.Errorf("decode model output: %w", err)
		}
		repaired, rerr := jsonrepair.JSONRepair(candidate)
		if rerr != nil {
			return nil, fmt.Errorf("decode model output: %w", err)
		}
		if uerr := json.Unmarshal([]byte(repaired), &v); uerr != nil {
			return nil, fmt.Errorf("decode repaired output: %w", uerr)
		}
		logx.Debug().Str("component", "summary_parser").Msg("model output repaired")
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

// NormalizeSummary coerces a decoded object into a ChatSummary. userText feeds
// the keyword classifier when the driver is missing or unknown.
func NormalizeSummary(obj map[string]any, userText, lastErr string) model.ChatSummary {
	var driver model.Driver
	if s, ok := obj["driver"].(string); ok && model.Driver(s).Valid() {
		driver = model.Driver(s)
	} else {
		driver = classifier.Classify(userText)
	}

	reframe := ""
	if v := obj["reframe"]; truthy(v) {
		reframe = stringify(v)
	}

	return model.ChatSummary{
		Driver:            driver,
		IntensityGuess:    coerceIntensity(obj["intensity_guess_0_10"]),
		UnhelpfulThoughts: coerceList(obj["unhelpful_thoughts"]),
		Reframe:           reframe,
		SuggestedActions:  coerceList(obj["suggested_actions"]),
		LastError:         lastErr,
	}
}

// coerceIntensity: number truncates, numeric string parses, bool is 0/1,
// anything else is the default. The result is clamped to [0,10].
func coerceIntensity(v any) int {
	n := defaultIntensity
	switch t := v.(type) {
	case float64:
		n = int(math.Max(-1, math.Min(11, math.Trunc(t))))
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			n = parsed
		}
	case bool:
		if t {
			n = 1
		} else {
			n = 0
		}
	}
	return clampInt(n, minIntensity, maxIntensity)
}

func coerceList(v any) []string {
	if !truthy(v) {
		return []string{}
	}
	arr, ok := v.([]any)
	if !ok {
		return []string{stringify(v)}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		out = append(out, stringify(item))
	}
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
