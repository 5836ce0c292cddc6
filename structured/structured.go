package structured

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/tbxark/appraisalagent/llm"
)

var ErrNoJSON = errors.New("no JSON object found in model response")

var fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON pulls a JSON object out of free-form model output. It accepts,
// in order: the whole response as raw JSON, a fenced code block, or the first
// brace-balanced substring.
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") && sonic.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	if m := fencedJSON.FindStringSubmatch(trimmed); m != nil && sonic.Valid([]byte(m[1])) {
		return m[1], nil
	}
	if obj, ok := firstBalancedObject(trimmed); ok {
		return obj, nil
	}
	return "", ErrNoJSON
}

func firstBalancedObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if sonic.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(s)
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// Decode extracts a JSON object from text and unmarshals it into T.
func Decode[T any](text string) (*T, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var out T
	if err := sonic.UnmarshalString(raw, &out); err != nil {
		return nil, fmt.Errorf("parse model JSON failed: %w", err)
	}
	return &out, nil
}

type PromptBuilder[TInput any] func(ctx context.Context, input TInput) (string, error)

// Chain renders a prompt, calls the generator and decodes a JSON object from the reply.
type Chain[TInput, TOutput any] struct {
	PromptBuilder PromptBuilder[TInput]
	Generator     llm.Generator
}

func NewChain[TInput, TOutput any](generator llm.Generator, promptBuilder PromptBuilder[TInput]) *Chain[TInput, TOutput] {
	return &Chain[TInput, TOutput]{
		PromptBuilder: promptBuilder,
		Generator:     generator,
	}
}

func (s *Chain[TInput, TOutput]) Invoke(ctx context.Context, input TInput) (*TOutput, error) {
	prompt, err := s.PromptBuilder(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("build prompt failed: %w", err)
	}
	text, err := s.Generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("call model failed: %w", err)
	}
	out, err := Decode[TOutput](text)
	if err != nil {
		return nil, fmt.Errorf("%w: %.200s", err, text)
	}
	return out, nil
}
