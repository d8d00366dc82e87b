package guard

import (
	"fmt"

	"github.com/mindcockpit-ai/ccguard/internal/audit"
)

// Runner is the outermost fault boundary of the guard. Whatever happens
// inside the engine (a matcher panic, a pattern that fails to compile,
// malformed configuration), the host gets a well-formed verdict. Internal
// failures degrade to Allow plus one ERROR audit entry; a broken guard must
// never break the agent's workflow. This conversion lives here and nowhere
// else so the fail-open policy stays auditable.
type Runner struct {
	engine *Engine
	log    *audit.Logger
}

func NewRunner(engine *Engine, log *audit.Logger) *Runner {
	return &Runner{engine: engine, log: log}
}

// Run evaluates one action and always returns a verdict.
func (r *Runner) Run(a Action) Verdict {
	v, err := r.evaluate(a)
	if err == nil {
		return v
	}
	if r.log != nil {
		_ = r.log.Append(audit.Entry{
			Severity: audit.SeverityError,
			Event:    "guard-failure",
			Detail:   err.Error(),
		})
	}
	return Verdict{Outcome: Allow}
}

func (r *Runner) evaluate(a Action) (v Verdict, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("engine: panic: %v", p)
		}
	}()
	return r.engine.Evaluate(a)
}
