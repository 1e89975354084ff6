// Package rules selects which action answers a command: condition filtering,
// the unmatched fallback, and deterministic rotation among ties.
package rules

import (
	"strings"

	"github.com/nathoo/holoroom/engine/expr"
	"github.com/nathoo/holoroom/types"
)

// Evaluator reports whether a condition holds. It is only called for
// conditions that are neither empty nor the fallback marker.
type Evaluator func(cond string) (bool, error)

// Candidates filters actions in authored order. Actions without a condition
// always qualify; actions whose condition is "unmatched" are used only when
// nothing else qualifies. The first evaluation error aborts the filter.
func Candidates(actions []*types.Action, eval Evaluator) ([]*types.Action, error) {
	var matched, fallback []*types.Action
	for _, a := range actions {
		if a == nil {
			continue
		}
		switch {
		case strings.TrimSpace(a.Condition) == "":
			matched = append(matched, a)
		case expr.IsUnmatched(a.Condition):
			fallback = append(fallback, a)
		default:
			ok, err := eval(a.Condition)
			if err != nil {
				return nil, err
			}
			if ok {
				matched = append(matched, a)
			}
		}
	}
	if len(matched) == 0 {
		return fallback, nil
	}
	return matched, nil
}
