// Package guard contains the decision pipeline: the action and verdict types,
// the decision engine that runs matchers in order, and the fault-isolation
// runner that guarantees the host only ever sees a well-formed decision.
package guard

import (
	"github.com/mindcockpit-ai/ccguard/internal/config"
)

// Kind identifies what the host agent is about to do.
type Kind string

const (
	ExecuteCommand Kind = "execute-command"
	ReadFile       Kind = "read-file"
	WriteFile      Kind = "write-file"
	FetchURL       Kind = "fetch-url"
	Search         Kind = "search"
)

// Action is one proposed tool call. Built once per invocation, immutable,
// discarded after a single decision.
type Action struct {
	Kind Kind

	// Payload is the one string the Kind makes relevant: the command line,
	// the file path, the URL, or the search query.
	Payload string

	// Content carries the written data for WriteFile actions. Empty for
	// every other kind.
	Content string

	// ContextPaths scope path-relative checks (element 0 is the working
	// directory when known).
	ContextPaths []string
}

// Outcome is a terminal decision state.
type Outcome string

const (
	Allow Outcome = "allow"
	Ask   Outcome = "ask"
	Deny  Outcome = "deny"
)

// Verdict is the decision for one action. Ask and Deny always carry a Reason;
// Allow carries one only when a rule matched explicitly (advisory allows).
type Verdict struct {
	Outcome Outcome
	Reason  string
	RuleID  string
}

// Matcher evaluates one action kind against its rule set. A nil Verdict with
// a nil error means "no opinion": the engine continues to the next matcher.
// Matchers are pure over (action, view) and perform no I/O.
type Matcher interface {
	Name() string
	Kinds() []Kind
	Match(a Action, view *config.View) (*Verdict, error)
}
