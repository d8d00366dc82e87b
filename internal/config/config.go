// Package config holds the resolved configuration view the guard reads.
// The hierarchical project/user/env resolution happens outside this process;
// by the time a View exists it is flat, typed, and read-only.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".ccguard"
	DefaultConfigFile = "guard.yaml"
	DefaultLogFile    = "audit.log"
)

// Level is the configured strictness tier. Levels are ordered: each tier
// activates everything the tier below it does, plus its own rule groups.
type Level int

const (
	LevelMinimal Level = iota
	LevelStandard
	LevelStrict
)

func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelStrict:
		return "strict"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// AtLeast reports whether l is as strict as or stricter than other.
func (l Level) AtLeast(other Level) bool { return l >= other }

// ParseLevel converts a config string into a Level. The empty string maps to
// LevelStandard, the documented default.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "", "standard":
		return LevelStandard, nil
	case "minimal":
		return LevelMinimal, nil
	case "strict":
		return LevelStrict, nil
	default:
		return LevelStandard, fmt.Errorf("unknown security level %q", s)
	}
}

func (l *Level) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l Level) MarshalYAML() (interface{}, error) { return l.String(), nil }

// View is the guard's entire configuration surface. Every field is optional;
// a zero-value or partially filled View degrades each matcher to its most
// permissive behavior rather than failing.
type View struct {
	Level       Level  `yaml:"security_level"`
	ProjectName string `yaml:"project_name"`
	ProjectRoot string `yaml:"project_root"`

	// MainBranch is the branch protected from forced pushes.
	MainBranch string `yaml:"main_branch"`

	// Language selects the secret scanner's language extension table.
	Language string `yaml:"language"`

	// BlockedPatterns are project-specific deny regexes for shell commands,
	// evaluated after every built-in rule.
	BlockedPatterns []string `yaml:"blocked_patterns"`

	// SafeDomains extends the built-in known-safe domain set.
	SafeDomains []string `yaml:"safe_domains"`

	// AllowDomains is the strict-mode allow-list. Only consulted at
	// LevelStrict, and only when non-empty.
	AllowDomains []string `yaml:"allow_domains"`

	// PentestAllowed disables sensitive-file read blocking for projects
	// that declare an authorized security-testing capability.
	PentestAllowed bool `yaml:"pentest_allowed"`
}

// Default returns the View used when no config file exists.
func Default() *View {
	return &View{
		Level:      LevelStandard,
		MainBranch: "main",
	}
}

// Load reads a resolved config file. A missing file is not an error: the
// guard runs with defaults. A malformed file is an error so the caller's
// fault boundary can log it.
func Load(path string) (*View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	view := Default()
	if err := yaml.Unmarshal(data, view); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if view.MainBranch == "" {
		view.MainBranch = "main"
	}
	return view, nil
}

// DefaultPaths returns the per-user config and audit log locations,
// creating the config directory if needed.
func DefaultPaths() (configPath, logPath string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", err
	}
	dir := filepath.Join(home, DefaultConfigDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", "", err
	}
	return filepath.Join(dir, DefaultConfigFile), filepath.Join(dir, DefaultLogFile), nil
}
