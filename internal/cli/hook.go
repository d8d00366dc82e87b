package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mindcockpit-ai/ccguard/internal/approval"
	"github.com/mindcockpit-ai/ccguard/internal/audit"
	"github.com/mindcockpit-ai/ccguard/internal/config"
	"github.com/mindcockpit-ai/ccguard/internal/emit"
	"github.com/mindcockpit-ai/ccguard/internal/guard"
	"github.com/mindcockpit-ai/ccguard/internal/rules"
)

// hookInput mirrors the tool-use hook payload the host runtime pipes to
// stdin, one JSON object per proposed action.
type hookInput struct {
	HookEventName string    `json:"hook_event_name"`
	ToolName      string    `json:"tool_name"`
	Cwd           string    `json:"cwd"`
	ToolInput     toolInput `json:"tool_input"`
}

type toolInput struct {
	Command  string `json:"command"`
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
	URL      string `json:"url"`
	Query    string `json:"query"`
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Evaluate one proposed tool call from stdin and emit a decision",
	Long: `Reads the host runtime's tool-use hook JSON from stdin, evaluates the
proposed action against the guard's rule tables, and writes the decision to
stdout: nothing for allow, {"decision":"ask"|"deny","reason":...} otherwise.

The hook never fails visibly: any internal guard error is logged to the
audit trail at ERROR severity and the action is allowed.`,
	RunE: hookCommand,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func hookCommand(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		warn("could not read hook input: %v", err)
		return nil
	}

	cfgPath, logFile, err := resolvePaths()
	if err != nil {
		warn("could not resolve paths: %v", err)
		return nil
	}
	log := audit.New(logFile)

	if os.Getenv("CCGUARD_BYPASS") == "1" {
		_ = log.Append(audit.Entry{
			Severity: audit.SeverityWarn,
			Event:    "bypass",
			Detail:   "CCGUARD_BYPASS=1; guard disabled for this action",
		})
		return nil
	}

	var input hookInput
	if err := json.Unmarshal(data, &input); err != nil {
		_ = log.Append(audit.Entry{
			Severity: audit.SeverityError,
			Event:    "guard-failure",
			Detail:   "hook: " + err.Error(),
		})
		return nil
	}

	action, ok := actionFrom(input)
	if !ok {
		// Tools the guard does not cover pass through untouched.
		return nil
	}

	view, err := config.Load(cfgPath)
	if err != nil {
		_ = log.Append(audit.Entry{
			Severity: audit.SeverityError,
			Event:    "guard-failure",
			Detail:   "config: " + err.Error(),
		})
		return nil
	}

	runner := guard.NewRunner(newEngine(view, log), log)
	verdict := runner.Run(action)

	if verdict.Outcome == guard.Ask && approval.IsInteractive() {
		verdict = askUser(log, action, verdict)
	}

	return emit.Write(os.Stdout, verdict)
}

// newEngine wires the four matchers in their documented evaluation order.
func newEngine(view *config.View, log *audit.Logger) *guard.Engine {
	return guard.NewEngine(view, log,
		rules.NewCommandMatcher(),
		rules.NewPathMatcher(),
		rules.NewDomainMatcher(),
		rules.NewSecretMatcher(),
	)
}

// askUser resolves an Ask verdict at the terminal instead of bouncing it to
// the host runtime.
func askUser(log *audit.Logger, action guard.Action, v guard.Verdict) guard.Verdict {
	res := approval.Ask(approval.Prompt{Payload: action.Payload, Reason: v.Reason, RuleID: v.RuleID})
	_ = log.Append(audit.Entry{
		Severity: audit.SeverityInfo,
		Event:    "approval",
		Detail:   fmt.Sprintf("%s: %s", res.UserAction, action.Payload),
	})
	if res.Approved {
		return guard.Verdict{Outcome: guard.Allow}
	}
	return guard.Verdict{Outcome: guard.Deny, Reason: v.Reason, RuleID: v.RuleID}
}

// actionFrom maps a hook payload to a guard action. Unknown tools return
// ok=false and are not evaluated.
func actionFrom(in hookInput) (guard.Action, bool) {
	var ctx []string
	if in.Cwd != "" {
		ctx = append(ctx, in.Cwd)
	}

	switch in.ToolName {
	case "Bash":
		if in.ToolInput.Command == "" {
			return guard.Action{}, false
		}
		return guard.Action{Kind: guard.ExecuteCommand, Payload: in.ToolInput.Command, ContextPaths: ctx}, true
	case "Read":
		if in.ToolInput.FilePath == "" {
			return guard.Action{}, false
		}
		return guard.Action{Kind: guard.ReadFile, Payload: in.ToolInput.FilePath, ContextPaths: ctx}, true
	case "Write", "Edit", "MultiEdit":
		if in.ToolInput.FilePath == "" {
			return guard.Action{}, false
		}
		return guard.Action{
			Kind:         guard.WriteFile,
			Payload:      in.ToolInput.FilePath,
			Content:      in.ToolInput.Content,
			ContextPaths: ctx,
		}, true
	case "WebFetch":
		if in.ToolInput.URL == "" {
			return guard.Action{}, false
		}
		return guard.Action{Kind: guard.FetchURL, Payload: in.ToolInput.URL, ContextPaths: ctx}, true
	case "WebSearch":
		return guard.Action{Kind: guard.Search, Payload: in.ToolInput.Query, ContextPaths: ctx}, true
	default:
		return guard.Action{}, false
	}
}

func warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ccguard] warning: "+format+"\n", args...)
}
