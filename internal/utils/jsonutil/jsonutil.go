package jsonutil

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSONObject = errors.New("no JSON object found")

// Decode unmarshals text into target. When text is not valid JSON on its own
// (for example an object wrapped in prose or a code fence), the span between
// the first '{' and the last '}' is decoded instead.
func Decode(text string, target interface{}) error {
	trimmed := strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(trimmed), target); err == nil {
		return nil
	}

	object, ok := ExtractObject(trimmed)
	if !ok {
		return ErrNoJSONObject
	}

	return json.Unmarshal([]byte(object), target)
}

// ExtractObject returns the substring from the first '{' to the last '}'.
func ExtractObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}

	return text[start : end+1], true
}
