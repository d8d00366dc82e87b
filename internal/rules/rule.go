// Package rules implements the four matchers as ordered rule tables consumed
// by one generic evaluator. Order inside a table is the priority order:
// evaluation stops at the first match, and built-in rules always precede
// project-supplied ones.
package rules

import (
	"regexp"

	"github.com/mindcockpit-ai/ccguard/internal/config"
	"github.com/mindcockpit-ai/ccguard/internal/guard"
	"github.com/mindcockpit-ai/ccguard/internal/shell"
)

// Input is what a single rule sees: the action, its normalized text, the
// parsed pipeline (command rules only), and the configuration view.
type Input struct {
	Action guard.Action
	Text   string
	Parsed *shell.Pipeline
	View   *config.View
}

// Rule is one named predicate. Exactly one of Pattern or Match is set.
type Rule struct {
	ID       string
	MinLevel config.Level
	Outcome  guard.Outcome
	Reason   string
	Pattern  *regexp.Regexp
	Match    func(in Input) bool
}

// evalOrdered applies the security level gate, then walks the table in order
// and returns the verdict of the first matching rule. Nil means no opinion.
func evalOrdered(table []Rule, in Input) *guard.Verdict {
	for _, r := range table {
		if !in.View.Level.AtLeast(r.MinLevel) {
			continue
		}
		var matched bool
		switch {
		case r.Pattern != nil:
			matched = r.Pattern.MatchString(in.Text)
		case r.Match != nil:
			matched = r.Match(in)
		}
		if matched {
			return &guard.Verdict{Outcome: r.Outcome, Reason: r.Reason, RuleID: r.ID}
		}
	}
	return nil
}
