package rules

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mindcockpit-ai/ccguard/internal/config"
	"github.com/mindcockpit-ai/ccguard/internal/guard"
)

// PathMatcher blocks reads of sensitive files. The whole matcher steps aside
// when the project declares an authorized penetration-testing capability, and
// dotenv files inside the project's own root are exempt.
type PathMatcher struct{}

func NewPathMatcher() *PathMatcher { return &PathMatcher{} }

func (m *PathMatcher) Name() string        { return "path" }
func (m *PathMatcher) Kinds() []guard.Kind { return []guard.Kind{guard.ReadFile} }

type pathRule struct {
	id     string
	glob   glob.Glob
	reason string
	dotenv bool
}

var sensitivePathRules = []pathRule{
	{id: "path-shadow", glob: glob.MustCompile("/etc/{shadow,gshadow,passwd,master.passwd}", '/'),
		reason: "read of the system password database is blocked"},
	{id: "path-ssh-keys", glob: glob.MustCompile("**/.ssh/**", '/'),
		reason: "private key material under an .ssh directory is blocked"},
	{id: "path-cloud-creds", glob: glob.MustCompile("**/{.aws/credentials,.aws/config,.kube/config}", '/'),
		reason: "cloud credential files are blocked"},
	{id: "path-cloud-creds-dirs", glob: glob.MustCompile("**/{.config/gcloud,.azure}/**", '/'),
		reason: "cloud credential files are blocked"},
	{id: "path-gnupg", glob: glob.MustCompile("**/.gnupg/**", '/'),
		reason: "GPG keyring files are blocked"},
	{id: "path-dotenv", glob: glob.MustCompile("{**/.env,**/.env.*}", '/'), dotenv: true,
		reason: "environment files outside the project root may hold credentials"},
}

func (m *PathMatcher) Match(a guard.Action, view *config.View) (*guard.Verdict, error) {
	if view.PentestAllowed {
		return nil, nil
	}

	path := resolvePath(a.Payload, a.ContextPaths)
	if path == "" {
		return nil, nil
	}

	for _, r := range sensitivePathRules {
		if !r.glob.Match(path) {
			continue
		}
		if r.dotenv && insideRoot(path, view.ProjectRoot) {
			continue
		}
		return &guard.Verdict{Outcome: guard.Deny, Reason: r.reason, RuleID: r.id}, nil
	}
	return nil, nil
}

// resolvePath expands a leading tilde against the home directory and anchors
// relative paths at the action's working directory.
func resolvePath(path string, contextPaths []string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	path = ExpandTilde(path)
	if !filepath.IsAbs(path) && len(contextPaths) > 0 && contextPaths[0] != "" {
		path = filepath.Join(contextPaths[0], path)
	}
	return filepath.Clean(path)
}

// ExpandTilde rewrites ~ and ~/… against the current user's home directory.
func ExpandTilde(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func insideRoot(path, root string) bool {
	if root == "" {
		return false
	}
	root = filepath.Clean(ExpandTilde(root))
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
