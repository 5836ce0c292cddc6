package patch

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/tbxark/appraisalagent/form"
)

// ErrStale is returned when a test operation no longer matches the project,
// meaning the ops were computed against a different prior.
var ErrStale = errors.New("patch computed against a stale project")

func applyOptions() *jsonpatch.ApplyOptions {
	opts := jsonpatch.NewApplyOptions()
	opts.AllowMissingPathOnRemove = true
	opts.EnsurePathExistsOnAdd = true
	return opts
}

// applyProject runs ops over the JSON form of p.
func applyProject(p form.Project, ops []Operation) (form.Project, error) {
	if len(ops) == 0 {
		return p, nil
	}
	doc, err := sonic.Marshal(p)
	if err != nil {
		return p, fmt.Errorf("encode project: %w", err)
	}
	raw, err := sonic.Marshal(ops)
	if err != nil {
		return p, fmt.Errorf("encode operations: %w", err)
	}
	decoded, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return p, fmt.Errorf("decode patch: %w", err)
	}
	patched, err := decoded.ApplyWithOptions(doc, applyOptions())
	if err != nil {
		if errors.Is(err, jsonpatch.ErrTestFailed) {
			return p, fmt.Errorf("%w: %v", ErrStale, err)
		}
		return p, fmt.Errorf("apply patch: %w", err)
	}
	var out form.Project
	if err := sonic.Unmarshal(patched, &out); err != nil {
		return p, fmt.Errorf("decode patched project: %w", err)
	}
	return out, nil
}
