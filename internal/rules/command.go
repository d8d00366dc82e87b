package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mindcockpit-ai/ccguard/internal/config"
	"github.com/mindcockpit-ai/ccguard/internal/guard"
	"github.com/mindcockpit-ai/ccguard/internal/shell"
)

// CommandMatcher evaluates shell commands. Table order: built-in destructive
// rules (every level), then the exfiltration/encoding group (Standard and up),
// then project-supplied blocked patterns.
type CommandMatcher struct{}

func NewCommandMatcher() *CommandMatcher { return &CommandMatcher{} }

func (m *CommandMatcher) Name() string        { return "command" }
func (m *CommandMatcher) Kinds() []guard.Kind { return []guard.Kind{guard.ExecuteCommand} }

func (m *CommandMatcher) Match(a guard.Action, view *config.View) (*guard.Verdict, error) {
	text := strings.ToLower(strings.TrimSpace(a.Payload))
	if text == "" {
		return nil, nil
	}
	in := Input{Action: a, Text: text, Parsed: shell.Parse(text), View: view}

	if v := evalOrdered(builtinCommandRules, in); v != nil {
		return v, nil
	}

	project, err := projectCommandRules(view.BlockedPatterns)
	if err != nil {
		return nil, err
	}
	return evalOrdered(project, in), nil
}

var shellInterpreters = []string{"sh", "bash", "zsh", "dash", "ksh", "fish"}

func isShellInterpreter(name string) bool {
	for _, s := range shellInterpreters {
		if name == s {
			return true
		}
	}
	return false
}

var builtinCommandRules = []Rule{
	{
		ID:      "cmd-rm-system-path",
		Outcome: guard.Deny,
		Reason:  "recursive forced delete targets a system-critical path",
		Match: func(in Input) bool {
			found := false
			in.Parsed.Each(func(seg shell.Segment) {
				if seg.Executable != "rm" {
					return
				}
				recursive := seg.HasFlag("r", "R", "recursive")
				force := seg.HasFlag("f", "force")
				if !recursive || !force {
					return
				}
				for _, arg := range seg.Args {
					if isSystemPath(arg) {
						found = true
					}
				}
			})
			return found
		},
	},
	{
		ID:      "cmd-git-force-push",
		Outcome: guard.Deny,
		Reason:  "forced push to the protected branch rewrites shared history",
		Match: func(in Input) bool {
			branch := strings.ToLower(in.View.MainBranch)
			if branch == "" {
				branch = "main"
			}
			found := false
			in.Parsed.Each(func(seg shell.Segment) {
				if seg.Executable != "git" || !seg.HasArg("push") {
					return
				}
				if !seg.HasFlag("f", "force") {
					return
				}
				if seg.HasArg(branch, "refs/heads/"+branch) {
					found = true
				}
			})
			return found
		},
	},
	{
		ID:      "cmd-git-hard-reset",
		Outcome: guard.Deny,
		Reason:  "git reset --hard discards uncommitted work",
		Pattern: regexp.MustCompile(`\bgit\s+reset\s+(-\S+\s+)*--hard\b`),
	},
	{
		ID:      "cmd-sql-destructive",
		Outcome: guard.Deny,
		Reason:  "destructive SQL statement (drop/truncate/unqualified delete)",
		Match: func(in Input) bool {
			t := in.Text
			if strings.Contains(t, "drop table") || strings.Contains(t, "drop database") ||
				strings.Contains(t, "drop schema") || strings.Contains(t, "truncate table") {
				return true
			}
			return strings.Contains(t, "delete from") && !strings.Contains(t, " where ")
		},
	},
	{
		ID:      "cmd-vcs-metadata-delete",
		Outcome: guard.Deny,
		Reason:  "deleting version-control metadata destroys repository history",
		Pattern: regexp.MustCompile(`\brm\s[^|;&]*\.git(/|\s|$)`),
	},
	{
		ID:      "cmd-chmod-world-writable",
		Outcome: guard.Deny,
		Reason:  "world-writable permission change",
		Pattern: regexp.MustCompile(`\bchmod\s+(-[a-z]+\s+)*(0?777|a\+rwx)\b`),
	},
	{
		ID:      "cmd-git-clean-untracked",
		Outcome: guard.Deny,
		Reason:  "bulk deletion of untracked files without a dry run",
		Match: func(in Input) bool {
			found := false
			in.Parsed.Each(func(seg shell.Segment) {
				if seg.Executable != "git" || !seg.HasArg("clean") {
					return
				}
				if seg.HasFlag("f", "force") && !seg.HasFlag("n", "dry-run", "i", "interactive") {
					found = true
				}
			})
			return found
		},
	},

	// Standard level and above.
	{
		ID:       "cmd-exfil-pipe",
		MinLevel: config.LevelStandard,
		Outcome:  guard.Deny,
		Reason:   "file or environment contents piped to a network tool",
		Match: func(in Input) bool {
			sources := []string{"cat", "env", "printenv", "head", "tail", "strings"}
			sinks := []string{"curl", "wget", "nc", "ncat", "netcat", "ssh"}
			if in.Parsed.PipedInto(sources, sinks) {
				return true
			}
			// Command substitution handing env output to a network tool.
			usesNet := strings.Contains(in.Text, "curl") || strings.Contains(in.Text, "wget")
			return usesNet && (strings.Contains(in.Text, "$(env)") || strings.Contains(in.Text, "`env`"))
		},
	},
	{
		ID:       "cmd-encoded-exec",
		MinLevel: config.LevelStandard,
		Outcome:  guard.Deny,
		Reason:   "base64-decoded payload piped to a shell",
		Match: func(in Input) bool {
			for i, op := range in.Parsed.Operators {
				if op != "|" || i+1 >= len(in.Parsed.Segments) {
					continue
				}
				lhs, rhs := in.Parsed.Segments[i], in.Parsed.Segments[i+1]
				if lhs.Executable == "base64" && lhs.HasFlag("d", "decode") &&
					isShellInterpreter(rhs.Executable) {
					return true
				}
			}
			return false
		},
	},
	{
		ID:       "cmd-eval-substitution",
		MinLevel: config.LevelStandard,
		Outcome:  guard.Deny,
		Reason:   "eval over command substitution hides the executed command",
		Pattern:  regexp.MustCompile("\\beval\\b[^|;&]*(\\$\\(|`)"),
	},
	{
		ID:       "cmd-net-pipe-to-shell",
		MinLevel: config.LevelStandard,
		Outcome:  guard.Deny,
		Reason:   "remote script piped directly to a shell (pipe-to-shell); download and inspect it first",
		Match: func(in Input) bool {
			return in.Parsed.PipedInto([]string{"curl", "wget", "fetch"}, shellInterpreters)
		},
	},
}

// projectCommandRules compiles the configured blocked patterns into deny
// rules. A pattern that does not compile is an internal fault for the runner
// to absorb, not a silently skipped rule.
func projectCommandRules(patterns []string) ([]Rule, error) {
	rs := make([]Rule, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("blocked pattern %d (%q): %w", i, p, err)
		}
		rs = append(rs, Rule{
			ID:      fmt.Sprintf("project-pattern-%d", i),
			Outcome: guard.Deny,
			Reason:  fmt.Sprintf("command matches project blocked pattern \"%s\"", p),
			Pattern: re,
		})
	}
	return rs, nil
}

var systemPathRoots = []string{
	"/etc", "/usr", "/var", "/boot", "/bin", "/sbin", "/lib", "/lib64",
	"/sys", "/proc", "/dev", "/root", "/opt",
}

func isSystemPath(arg string) bool {
	if arg == "/" || arg == "/*" {
		return true
	}
	arg = strings.TrimSuffix(arg, "/")
	if arg == "/home" {
		return true
	}
	for _, root := range systemPathRoots {
		if arg == root || strings.HasPrefix(arg, root+"/") {
			return true
		}
	}
	return false
}
