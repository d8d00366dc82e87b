// Package approval escalates Ask verdicts to a human when the guard runs
// attached to a terminal. In non-interactive hook mode the Ask is passed
// through to the host runtime unchanged instead.
package approval

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

type Prompt struct {
	Payload string
	Reason  string
	RuleID  string
}

type Result struct {
	Approved   bool
	UserAction string
}

// IsInteractive reports whether stdin is a terminal a human can answer on.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Ask prompts the user to approve or deny the flagged action.
func Ask(p Prompt) Result {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "──────────────────────────────────────────────")
	fmt.Fprintln(os.Stderr, "  ccguard: approval required")
	fmt.Fprintln(os.Stderr, "──────────────────────────────────────────────")
	fmt.Fprintf(os.Stderr, "Action: %s\n", p.Payload)
	if p.Reason != "" {
		fmt.Fprintf(os.Stderr, "Reason: %s\n", p.Reason)
	}
	if p.RuleID != "" {
		fmt.Fprintf(os.Stderr, "Rule:   %s\n", p.RuleID)
	}
	fmt.Fprintln(os.Stderr, "")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "Approve this action? [a]pprove / [d]eny: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return Result{Approved: false, UserAction: "error_reading_input"}
		}
		switch strings.TrimSpace(strings.ToLower(input)) {
		case "a", "approve", "y", "yes":
			return Result{Approved: true, UserAction: "approve_once"}
		case "d", "deny", "n", "no":
			return Result{Approved: false, UserAction: "deny"}
		default:
			fmt.Fprintln(os.Stderr, "Please answer 'a' or 'd'.")
		}
	}
}
