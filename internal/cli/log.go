package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mindcockpit-ai/ccguard/internal/audit"
)

var (
	logFilterSeverity string
	logLast           int
	logSummary        bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the audit log",
	Long: `View the ccguard audit trail.

Examples:
  ccguard log                    # all entries
  ccguard log --last 20          # newest 20 entries
  ccguard log --severity DENY    # only denied actions
  ccguard log --summary          # counts per severity`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterSeverity, "severity", "", "Filter by severity (INFO, WARN, ASK, DENY, ERROR)")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show only the newest N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	_, logFile, err := resolvePaths()
	if err != nil {
		return err
	}

	entries, err := audit.New(logFile).Read()
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No audit log entries found.")
		return nil
	}

	if logSummary {
		printLogSummary(entries)
		return nil
	}

	filtered := entries
	if logFilterSeverity != "" {
		filtered = nil
		for _, e := range entries {
			if strings.EqualFold(string(e.Severity), logFilterSeverity) {
				filtered = append(filtered, e)
			}
		}
	}
	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	for _, e := range filtered {
		fmt.Println(e.Line())
	}
	return nil
}

func printLogSummary(entries []audit.Entry) {
	counts := map[audit.Severity]int{}
	for _, e := range entries {
		counts[e.Severity]++
	}

	fmt.Printf("Total entries: %d\n", len(entries))
	for _, sev := range []audit.Severity{
		audit.SeverityInfo, audit.SeverityWarn, audit.SeverityAsk,
		audit.SeverityDeny, audit.SeverityError,
	} {
		fmt.Printf("  %-5s %d\n", sev, counts[sev])
	}
	fmt.Printf("First: %s\n", entries[0].Time.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Last:  %s\n", entries[len(entries)-1].Time.Local().Format("2006-01-02 15:04:05"))
}
