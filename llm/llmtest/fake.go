// Package llmtest provides a scripted llm.Generator for tests.
package llmtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrNoScript = errors.New("llmtest: no scripted reply")

type rule struct {
	contains string
	replies  []string
	err      error
	served   int
}

// Fake answers prompts by the first rule whose marker occurs in the prompt.
// A rule with several replies serves them in order and then repeats the last.
type Fake struct {
	mu    sync.Mutex
	rules []*rule
	calls []string
}

func New() *Fake {
	return &Fake{}
}

func (f *Fake) On(contains string, replies ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, &rule{contains: contains, replies: replies})
	return f
}

func (f *Fake) Fail(contains string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = errors.New("llmtest: scripted failure")
	}
	f.rules = append(f.rules, &rule{contains: contains, err: err})
	return f
}

func (f *Fake) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, r := range f.rules {
		if !strings.Contains(prompt, r.contains) {
			continue
		}
		if r.err != nil {
			return "", r.err
		}
		if len(r.replies) == 0 {
			return "", ErrNoScript
		}
		i := r.served
		if i >= len(r.replies) {
			i = len(r.replies) - 1
		}
		r.served++
		return r.replies[i], nil
	}
	return "", fmt.Errorf("%w for prompt %.60q", ErrNoScript, prompt)
}

func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsContaining counts prompts that contain marker.
func (f *Fake) CallsContaining(marker string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.Contains(c, marker) {
			n++
		}
	}
	return n
}
