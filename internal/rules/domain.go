package rules

import (
	"fmt"
	"strings"

	"github.com/mindcockpit-ai/ccguard/internal/config"
	"github.com/mindcockpit-ai/ccguard/internal/guard"
)

// DomainMatcher classifies network fetches by host. Searches carry no URL and
// are always allowed (logged at INFO). Unknown hosts escalate with the
// security level: Allow at Minimal, Ask at Standard, Deny at Strict when an
// allow-list is configured.
type DomainMatcher struct{}

func NewDomainMatcher() *DomainMatcher { return &DomainMatcher{} }

func (m *DomainMatcher) Name() string        { return "domain" }
func (m *DomainMatcher) Kinds() []guard.Kind { return []guard.Kind{guard.FetchURL, guard.Search} }

// builtinSafeDomains are hosts pre-approved at every level below Strict's
// allow-list mode: package registries, source forges, reference docs.
var builtinSafeDomains = []string{
	"github.com",
	"api.github.com",
	"raw.githubusercontent.com",
	"gist.githubusercontent.com",
	"objects.githubusercontent.com",
	"gitlab.com",
	"pypi.org",
	"files.pythonhosted.org",
	"registry.npmjs.org",
	"nodejs.org",
	"proxy.golang.org",
	"sum.golang.org",
	"pkg.go.dev",
	"go.dev",
	"golang.org",
	"crates.io",
	"static.crates.io",
	"docs.rs",
	"rubygems.org",
	"formulae.brew.sh",
	"docs.python.org",
	"developer.mozilla.org",
	"stackoverflow.com",
	"wikipedia.org",
}

func (m *DomainMatcher) Match(a guard.Action, view *config.View) (*guard.Verdict, error) {
	if a.Kind == guard.Search {
		return &guard.Verdict{Outcome: guard.Allow, RuleID: "domain-search"}, nil
	}

	host := HostOf(a.Payload)
	if host == "" {
		return nil, nil
	}

	if hostInSet(host, builtinSafeDomains) || hostInSet(host, view.SafeDomains) {
		return &guard.Verdict{Outcome: guard.Allow, RuleID: "domain-known-safe"}, nil
	}

	switch {
	case view.Level == config.LevelStrict && len(view.AllowDomains) > 0:
		if hostInSet(host, view.AllowDomains) {
			return &guard.Verdict{Outcome: guard.Allow, RuleID: "domain-allow-list"}, nil
		}
		return &guard.Verdict{
			Outcome: guard.Deny,
			Reason:  fmt.Sprintf("host %q is not on the strict allow-list", host),
			RuleID:  "domain-not-allowed",
		}, nil
	case view.Level == config.LevelStandard:
		return &guard.Verdict{
			Outcome: guard.Ask,
			Reason:  fmt.Sprintf("host %q is not a known-safe domain", host),
			RuleID:  "domain-unknown",
		}, nil
	default:
		// Minimal, or Strict without a configured allow-list: nothing to
		// enforce, fall through to the default allow.
		return nil, nil
	}
}

// HostOf extracts the host component of a URL: strip scheme, path, userinfo
// and port. Lowercased. Returns "" when no host-shaped component exists.
func HostOf(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	// Strip a port, leaving IPv6 literals intact.
	if !strings.HasPrefix(s, "[") {
		if i := strings.LastIndex(s, ":"); i >= 0 {
			s = s[:i]
		}
	} else if i := strings.Index(s, "]"); i >= 0 {
		s = s[:i+1]
	}
	return strings.ToLower(s)
}

// hostInSet matches a host against a domain set exactly or as a subdomain.
func hostInSet(host string, set []string) bool {
	for _, d := range set {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
