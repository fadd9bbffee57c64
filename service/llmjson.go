package service

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:json)?(.*?)```")
	objectSpan  = regexp.MustCompile(`(?s)\{.*\}`)
)

// parseLLMJSON decodes a model reply into an object. It strips a markdown
// fence, doubles backslashes that do not start a JSON escape, and falls back
// to the widest {...} span. Anything still unparseable yields an empty map.
func parseLLMJSON(raw string) map[string]any {
	if strings.Contains(raw, "```") {
		if m := fencedBlock.FindStringSubmatch(raw); m != nil {
			raw = strings.TrimSpace(m[1])
		}
	}
	raw = escapeStrayBackslashes(raw)

	if obj, ok := decodeObject(raw); ok {
		return obj
	}
	if span := objectSpan.FindString(raw); span != "" {
		if obj, ok := decodeObject(span); ok {
			return obj
		}
	}
	return map[string]any{}
}

func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// trailing garbage means the direct parse failed
	if dec.More() {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, true
	}
	return obj, true
}

func escapeStrayBackslashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && strings.IndexByte(`/u"bfnrt\`, s[i+1]) >= 0 {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

// normalizeList keeps the object entries of a list value.
func normalizeList(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// keyString renders a correlation key. Falsy values (missing, null, "",
// 0, false) render as "".
func keyString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return ""
		}
		return t.String()
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if !t {
			return ""
		}
		return "true"
	default:
		return ""
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asFloat accepts finite numbers and numeric strings. NaN and Inf are rejected.
func asFloat(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// asInt accepts integral numbers and numeric strings.
func asInt(v any) (int64, bool) {
	f, ok := asFloat(v)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// asID accepts a positive integer id.
func asID(v any) (uint, bool) {
	n, ok := asInt(v)
	if !ok || n <= 0 {
		return 0, false
	}
	return uint(n), true
}
