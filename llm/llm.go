// Package llm adapts chat models to the plain prompt -> text contract the
// dialogue components depend on.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var (
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrGeneration marks a reply that could not be produced or used.
	ErrGeneration = errors.New("llm: generation failed")
)

// Generator turns a prompt into a text completion. Implementations may fail
// for network, quota or provider reasons; callers decide how to recover.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type ChatModelGenerator struct {
	chatModel    model.BaseChatModel
	systemPrompt string
	opts         []model.Option
}

type Option func(*ChatModelGenerator)

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(prompt string) Option {
	return func(g *ChatModelGenerator) {
		g.systemPrompt = prompt
	}
}

func WithModelOptions(opts ...model.Option) Option {
	return func(g *ChatModelGenerator) {
		g.opts = append(g.opts, opts...)
	}
}

func NewChatModelGenerator(chatModel model.BaseChatModel, opts ...Option) *ChatModelGenerator {
	g := &ChatModelGenerator{chatModel: chatModel}
	for _, o := range opts {
		if o != nil {
			o(g)
		}
	}
	return g
}

func (g *ChatModelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	messages := make([]*schema.Message, 0, 2)
	if g.systemPrompt != "" {
		messages = append(messages, schema.SystemMessage(g.systemPrompt))
	}
	messages = append(messages, schema.UserMessage(prompt))

	resp, err := g.chatModel.Generate(ctx, messages, g.opts...)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Content, nil
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewOpenAIGenerator builds a generator on an OpenAI-compatible endpoint.
func NewOpenAIGenerator(ctx context.Context, conf Config, opts ...Option) (*ChatModelGenerator, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  conf.APIKey,
		Model:   conf.Model,
		BaseURL: conf.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model %q: %w", conf.Model, err)
	}
	return NewChatModelGenerator(cm, opts...), nil
}

// FailbackGenerator tries each generator in order and returns the first success.
type FailbackGenerator struct {
	generators []Generator
}

func NewFailbackGenerator(generators ...Generator) *FailbackGenerator {
	return &FailbackGenerator{generators: generators}
}

func (g *FailbackGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	lastErr := errors.New("no generators configured")
	for _, gen := range g.generators {
		if gen == nil {
			continue
		}
		text, err := gen.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("all generators failed: %w", lastErr)
}
