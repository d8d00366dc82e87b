package rules

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mindcockpit-ai/ccguard/internal/config"
	"github.com/mindcockpit-ai/ccguard/internal/guard"
)

// SecretMatcher scans written file content for credential shapes. It is
// advisory only: the write has already happened by the time it runs, so the
// strongest thing it can do is attach a note and leave a WARN audit entry.
type SecretMatcher struct{}

func NewSecretMatcher() *SecretMatcher { return &SecretMatcher{} }

func (m *SecretMatcher) Name() string        { return "secret" }
func (m *SecretMatcher) Kinds() []guard.Kind { return []guard.Kind{guard.WriteFile} }

type secretPattern struct {
	id   string
	what string
	re   *regexp.Regexp
}

var universalSecretPatterns = []secretPattern{
	{"secret-aws-key", "an AWS access key ID",
		regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"secret-private-key", "PEM private key material",
		regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`)},
	{"secret-github-token", "a GitHub token",
		regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`)},
	{"secret-slack-token", "a Slack token",
		regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-\S+`)},
	{"secret-key-assignment", "an API credential assignment",
		regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?key|access[_-]?token|auth[_-]?token)\s*[:=]\s*['"][A-Za-z0-9_\-/+=]{16,}['"]`)},
	{"secret-password-literal", "a long literal assigned to a password-like field",
		regexp.MustCompile(`(?i)["']?(password|passwd|secret|token)["']?\s*[:=]\s*["'][^"']{12,}["']`)},
}

// languageSecretPatterns extend the universal table with assignment shapes
// idiomatic to the project's configured implementation language.
var languageSecretPatterns = map[string][]secretPattern{
	"python": {
		{"secret-py-constant", "a module-level credential constant",
			regexp.MustCompile(`(?m)^[A-Z_]*(KEY|SECRET|TOKEN|PASSWORD)[A-Z_]*\s*=\s*["'][^"']{8,}["']`)},
	},
	"go": {
		{"secret-go-constant", "a credential string constant",
			regexp.MustCompile(`(?i)\b\w*(key|secret|token|password)\w*\s*=\s*"[^"]{8,}"`)},
	},
	"javascript": {
		{"secret-js-assignment", "a credential property assignment",
			regexp.MustCompile(`(?i)\b\w*(apikey|api_key|secret|token|password)\w*\s*[:=]\s*` + "[`'\"][^`'\"]{8,}[`'\"]")},
	},
	"typescript": {
		{"secret-js-assignment", "a credential property assignment",
			regexp.MustCompile(`(?i)\b\w*(apikey|api_key|secret|token|password)\w*\s*[:=]\s*` + "[`'\"][^`'\"]{8,}[`'\"]")},
	},
	"java": {
		{"secret-java-constant", "a static credential constant",
			regexp.MustCompile(`(?i)static\s+final\s+String\s+\w*(key|secret|token|password)\w*\s*=\s*"[^"]{8,}"`)},
	},
	"shell": {
		{"secret-sh-export", "an exported credential variable",
			regexp.MustCompile(`(?i)export\s+\w*(key|secret|token|password)\w*=["']?\S{8,}`)},
	},
	"ruby": {
		{"secret-rb-constant", "a credential constant",
			regexp.MustCompile(`(?m)^[A-Z_]*(KEY|SECRET|TOKEN|PASSWORD)[A-Z_]*\s*=\s*["'][^"']{8,}["']`)},
	},
}

func (m *SecretMatcher) Match(a guard.Action, view *config.View) (*guard.Verdict, error) {
	if a.Content == "" || exemptFromSecretScan(a.Payload) {
		return nil, nil
	}

	tables := universalSecretPatterns
	if ext, ok := languageSecretPatterns[strings.ToLower(view.Language)]; ok {
		combined := make([]secretPattern, 0, len(tables)+len(ext))
		combined = append(combined, tables...)
		combined = append(combined, ext...)
		tables = combined
	}

	for _, p := range tables {
		if p.re.MatchString(a.Content) {
			return &guard.Verdict{
				Outcome: guard.Allow,
				RuleID:  p.id,
				Reason: fmt.Sprintf("%s may appear in %s; review before committing",
					p.what, filepath.Base(a.Payload)),
			}, nil
		}
	}
	return nil, nil
}

// exemptFromSecretScan skips files whose names mark them as tests, docs,
// examples or templates, where placeholder credentials are expected.
func exemptFromSecretScan(path string) bool {
	lower := strings.ToLower(filepath.ToSlash(path))
	for _, dir := range []string{"/test/", "/tests/", "/testdata/", "/spec/", "/specs/", "/docs/", "/examples/", "/fixtures/"} {
		if strings.Contains("/"+lower, dir) {
			return true
		}
	}

	base := filepath.Base(lower)
	switch filepath.Ext(base) {
	case ".md", ".rst", ".txt", ".example", ".sample", ".template", ".dist":
		return true
	}
	if strings.HasPrefix(base, "test_") || strings.HasPrefix(base, "example") ||
		strings.Contains(base, "_test.") || strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") || strings.HasPrefix(base, "mock_") ||
		strings.Contains(base, "_mock.") || strings.Contains(base, ".mock.") {
		return true
	}
	return false
}
