package guard

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/mindcockpit-ai/ccguard/internal/audit"
	"github.com/mindcockpit-ai/ccguard/internal/config"
)

// Engine orchestrates matcher evaluation for one action: pick the matcher set
// for the action's kind, evaluate in registration order, stop at the first
// definitive verdict, default to a silent allow. Deny and Ask always leave an
// audit entry; explicit rule-matched allows leave one too; the default allow
// leaves none.
type Engine struct {
	view     *config.View
	log      *audit.Logger
	matchers map[Kind][]Matcher
}

// NewEngine builds an engine over the given matchers. Matcher order is
// evaluation order. The logger may be nil (decisions are then unaudited,
// used by self-tests).
func NewEngine(view *config.View, log *audit.Logger, matchers ...Matcher) *Engine {
	e := &Engine{view: view, log: log, matchers: make(map[Kind][]Matcher)}
	for _, m := range matchers {
		for _, k := range m.Kinds() {
			e.matchers[k] = append(e.matchers[k], m)
		}
	}
	return e
}

// View returns the engine's configuration view.
func (e *Engine) View() *config.View { return e.view }

// Evaluate produces one verdict for one action. Errors identify the failing
// matcher by name and are expected to be absorbed by the Runner.
func (e *Engine) Evaluate(a Action) (Verdict, error) {
	for _, m := range e.matchers[a.Kind] {
		v, err := runMatcher(m, a, e.view)
		if err != nil {
			return Verdict{}, fmt.Errorf("%s: %w", m.Name(), err)
		}
		if v == nil {
			continue
		}
		e.record(a, m.Name(), *v)
		return *v, nil
	}
	return Verdict{Outcome: Allow}, nil
}

// runMatcher converts a matcher panic into an error so a buggy rule table
// cannot unwind past the engine.
func runMatcher(m Matcher, a Action, view *config.View) (v *Verdict, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	return m.Match(a, view)
}

func (e *Engine) record(a Action, matcher string, v Verdict) {
	if e.log == nil {
		return
	}

	var sev audit.Severity
	var event string
	switch v.Outcome {
	case Deny:
		sev, event = audit.SeverityDeny, matcher+"-deny"
	case Ask:
		sev, event = audit.SeverityAsk, matcher+"-ask"
	default:
		if v.Reason != "" {
			sev, event = audit.SeverityWarn, matcher+"-advisory"
		} else {
			sev, event = audit.SeverityInfo, matcher+"-allow"
		}
	}

	detail := snippet(a.Payload)
	if v.RuleID != "" {
		detail += " [" + v.RuleID + "]"
	}
	if v.Reason != "" {
		detail += " " + v.Reason
	}
	if err := e.log.Append(audit.Entry{Severity: sev, Event: event, Detail: detail}); err != nil {
		fmt.Fprintf(os.Stderr, "[ccguard] warning: audit log append failed: %v\n", err)
	}
}

const maxSnippet = 200

// snippet truncates on a rune boundary so log lines stay valid UTF-8.
func snippet(s string) string {
	if len(s) <= maxSnippet {
		return s
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
