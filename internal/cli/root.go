package cli

import (
	"github.com/spf13/cobra"

	"github.com/mindcockpit-ai/ccguard/internal/config"
)

var (
	configPath string
	logPath    string
)

var rootCmd = &cobra.Command{
	Use:   "ccguard",
	Short: "ccguard - tool-call guard for AI coding agents",
	Long: `ccguard intercepts the actions an AI coding agent proposes (shell
commands, file reads and writes, network fetches) and issues a binding
allow / ask / deny decision before the action executes, with a local
append-only audit trail.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to resolved config YAML (default: ~/.ccguard/guard.yaml)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to audit log file (default: ~/.ccguard/audit.log)")
}

func Execute() error {
	return rootCmd.Execute()
}

// resolvePaths fills in per-user defaults for flags the caller left unset.
func resolvePaths() (cfg, log string, err error) {
	cfg, log = configPath, logPath
	if cfg != "" && log != "" {
		return cfg, log, nil
	}
	defCfg, defLog, err := config.DefaultPaths()
	if err != nil {
		return "", "", err
	}
	if cfg == "" {
		cfg = defCfg
	}
	if log == "" {
		log = defLog
	}
	return cfg, log, nil
}
