// Package app assembles the appraisal flow from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/callbacks"

	"github.com/tbxark/appraisalagent/agent"
	"github.com/tbxark/appraisalagent/backend"
	"github.com/tbxark/appraisalagent/config"
	"github.com/tbxark/appraisalagent/dialogue"
	"github.com/tbxark/appraisalagent/events"
	"github.com/tbxark/appraisalagent/extract"
	"github.com/tbxark/appraisalagent/intent"
	"github.com/tbxark/appraisalagent/llm"
	"github.com/tbxark/appraisalagent/logger"
	"github.com/tbxark/appraisalagent/lookup"
	"github.com/tbxark/appraisalagent/score"
)

// App owns the flow, the one-shot review tools and the resources opened to build them.
type App struct {
	Flow        *agent.Flow
	Recommender *lookup.Service
	FactorRater *score.FactorRater
	Suggester   *dialogue.Suggester
	closers     []func() error
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New wires the flow. generator may be nil, in which case an OpenAI
// generator is built from conf.LLM.
func New(ctx context.Context, conf *config.Config, generator llm.Generator, log *logger.Logger) (*App, error) {
	log = logger.OrNop(log)
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	if generator == nil {
		var err error
		generator, err = newGenerator(ctx, conf.LLM)
		if err != nil {
			return nil, err
		}
	}

	store, err := a.newStore(ctx, conf.Session)
	if err != nil {
		return nil, err
	}

	extractor, err := extract.NewLLMExtractor(generator, log.With("component", "extract"))
	if err != nil {
		return nil, err
	}
	fetcher := backend.NewHTTPClient(conf.Backend.BaseURL, backend.WithTimeout(conf.Backend.Timeout.Duration))
	a.Recommender = lookup.NewService(fetcher, generator, log.With("component", "lookup"))
	a.FactorRater = score.NewFactorRater(generator, log.With("component", "score"))
	a.Suggester = dialogue.NewSuggester(generator)
	components := agent.Components{
		Classifier: intent.NewClassifier(intent.NewLLMRecognizer(generator), log.With("component", "intent")),
		Extractor:  extractor,
		FollowUps:  dialogue.NewFailbackGenerator(dialogue.NewLLMGenerator(generator), dialogue.LocalGenerator{}),
		Responder:  dialogue.NewFailbackResponder(dialogue.NewLLMResponder(generator), dialogue.LocalResponder{}),
		Lookup:     a.Recommender,
		Scorer:     score.NewPredictor(generator, log.With("component", "score")),
	}

	opts := []agent.Option{agent.WithLogger(log)}
	if conf.Session.HistoryLimit > 0 {
		opts = append(opts, agent.WithTrimmer(agent.KeepLastNTrimmer{N: conf.Session.HistoryLimit}))
	}
	if conf.Events.NATSURL != "" {
		pub, err := events.NewNATSPublisher(conf.Events.NATSURL, conf.Events.Subject, log.With("component", "events"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pub.Close(); return nil })
		opts = append(opts, agent.WithSubmitter(pub))
	}

	a.Flow, err = agent.NewFlow(store, components, opts...)
	if err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

func newGenerator(ctx context.Context, conf config.LLMConfig) (llm.Generator, error) {
	primary, err := llm.NewOpenAIGenerator(ctx, llm.Config{APIKey: conf.APIKey, BaseURL: conf.BaseURL, Model: conf.Model})
	if err != nil {
		return nil, err
	}
	if conf.FallbackModel == "" || conf.FallbackModel == conf.Model {
		return primary, nil
	}
	secondary, err := llm.NewOpenAIGenerator(ctx, llm.Config{APIKey: conf.APIKey, BaseURL: conf.BaseURL, Model: conf.FallbackModel})
	if err != nil {
		return nil, err
	}
	return llm.NewFailbackGenerator(primary, secondary), nil
}

func (a *App) newStore(ctx context.Context, conf config.SessionConfig) (*agent.SessionStore, error) {
	switch conf.Store {
	case "", "memory":
		return agent.NewSessionStore(agent.NewMemoryCache[*agent.Session](conf.TTL.Duration)), nil
	case "redis":
		client, err := agent.NewRedisClient(ctx, conf.RedisAddr, conf.RedisPassword, conf.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return agent.NewSessionStore(agent.NewRedisCache[*agent.Session](client, conf.TTL.Duration)), nil
	default:
		return nil, fmt.Errorf("unsupported session store %q", conf.Store)
	}
}

// LogCallbacks returns an eino callback handler that logs the start, end and
// failure of every component run that reports through callbacks.
func LogCallbacks(log *logger.Logger) callbacks.Handler {
	log = logger.OrNop(log)
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
			log.Debug("run started", "name", runName(info))
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			log.Debug("run finished", "name", runName(info))
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			log.Warn("run failed", "name", runName(info), "error", err)
			return ctx
		}).
		Build()
}

func runName(info *callbacks.RunInfo) string {
	if info == nil {
		return ""
	}
	return info.Name
}
