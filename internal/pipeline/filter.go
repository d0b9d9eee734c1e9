package pipeline

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bakkerme/postforge/internal/core"
)

// ItemFilter evaluates a configured boolean expression against each fetched
// item, e.g. `IsRetweet || IsReply` or `MediaCount == 0 && Lang != "en"`.
type ItemFilter struct {
	rule    string
	program *vm.Program
}

func NewItemFilter(rule string) (*ItemFilter, error) {
	program, err := expr.Compile(rule, expr.Env(filterEnv(core.Item{})), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &ItemFilter{rule: rule, program: program}, nil
}

// Skip reports whether the item matches the rule and should not be processed.
func (f *ItemFilter) Skip(item core.Item) (bool, error) {
	result, err := expr.Run(f.program, filterEnv(item))
	if err != nil {
		return false, fmt.Errorf("run skip rule %q: %w", f.rule, err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("skip rule %q did not return bool", f.rule)
	}
	return matched, nil
}

func filterEnv(item core.Item) map[string]interface{} {
	return map[string]interface{}{
		"ID":         item.ID,
		"Text":       item.Text,
		"Lang":       item.Lang,
		"Author":     item.Author.Handle,
		"IsReply":    item.IsReply,
		"IsRetweet":  item.IsRetweet,
		"MediaCount": len(item.Media),
	}
}
