package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ari/su-usage/internal/config"
	"github.com/ari/su-usage/internal/history"
)

// ANSI color codes
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorCyan    = "\033[36m"
	ColorMagenta = "\033[35m"
	ColorBold    = "\033[1m"
)

// FormatSUs formats an SU total with K/M suffix
func FormatSUs(total float64) string {
	if total >= 1_000_000 {
		return fmt.Sprintf("%.1fM", total/1_000_000)
	}
	if total >= 1_000 {
		return fmt.Sprintf("%.1fK", total/1_000)
	}
	return fmt.Sprintf("%.2f", total)
}

// FormatDateTime formats a Unix timestamp into a human-readable datetime
func FormatDateTime(timestamp int64) string {
	if timestamp == 0 {
		return "-"
	}
	t := time.Unix(timestamp, 0)
	return t.Format("2006-01-02 15:04")
}

// DisplayHistory prints logged queries, newest first. recorded is the
// number of queries in the whole log.
func DisplayHistory(w io.Writer, entries []history.Entry, recorded int64) {
	fmt.Fprintf(w, "\n%s%sQuery History%s\n", ColorBold, ColorBlue, ColorReset)
	fmt.Fprintln(w, strings.Repeat("=", 72))

	if len(entries) == 0 {
		fmt.Fprintf(w, "  %sNo queries recorded%s\n", ColorYellow, ColorReset)
		fmt.Fprintln(w, strings.Repeat("=", 72))
		return
	}

	fmt.Fprintf(w, "  %-16s %-12s %-23s %12s  %s\n", "Queried", "User", "Range", "SUs", "Status")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("-", 70))

	var total float64
	for _, e := range entries {
		status := ColorGreen + "ok" + ColorReset
		if e.Failed {
			status = ColorRed + "failed" + ColorReset
			if e.Error != "" {
				status += " (" + e.Error + ")"
			}
		}
		fmt.Fprintf(w, "  %-16s %-12s %-23s %12s  %s\n",
			FormatDateTime(e.QueriedAt),
			e.Username,
			e.StartDate+".."+e.EndDate,
			FormatSUs(e.Total),
			status)
		total += e.Total
	}

	fmt.Fprintf(w, "  %s\n", strings.Repeat("-", 70))
	fmt.Fprintf(w, "  %-16s %-12s %-23s %12s\n", "Total", "", "", FormatSUs(total))
	fmt.Fprintf(w, "  Showing %d of %d recorded queries\n", len(entries), recorded)
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

// DisplayConfig prints the effective configuration
func DisplayConfig(w io.Writer, cfg *config.Config) {
	cluster := cfg.Sreport.Cluster
	if cluster == "" {
		cluster = "(all)"
	}
	fmt.Fprintf(w, "Config loaded:\n")
	fmt.Fprintf(w, "  sreport:      %s\n", cfg.Sreport.Command)
	fmt.Fprintf(w, "  Cluster:      %s\n", cluster)
	fmt.Fprintf(w, "  Header lines: %d\n", cfg.Sreport.HeaderLines)
	fmt.Fprintf(w, "  Column:       %d (name: %q)\n", cfg.Sreport.Column, cfg.Sreport.ColumnName)
	fmt.Fprintf(w, "  Workers:      %d\n", cfg.Workers)
	fmt.Fprintf(w, "  History:      %v (%s)\n", cfg.History, cfg.GetDatabasePath())
}

// Error displays an error message
func Error(w io.Writer, msg string) {
	fmt.Fprintf(w, "%sError: %s%s\n", ColorRed, msg, ColorReset)
}
