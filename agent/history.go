package agent

import "github.com/tbxark/appraisalagent/types"

type Trimmer interface {
	Trim(history []types.Turn) []types.Turn
}

// KeepLastNTrimmer keeps the last N turns. When N <= 0 history is kept whole.
type KeepLastNTrimmer struct {
	N int
}

func (t KeepLastNTrimmer) Trim(history []types.Turn) []types.Turn {
	if t.N <= 0 || len(history) <= t.N {
		return history
	}
	out := make([]types.Turn, t.N)
	copy(out, history[len(history)-t.N:])
	return out
}
