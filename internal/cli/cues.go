package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/dubline/internal/subtitle"
)

const maxCueText = 48

var cuesCmd = &cobra.Command{
	Use:   "cues [subtitle_file]",
	Short: "Show where each cue will land in the stitched track",
	Long: `Print the cue timeline of a subtitle file without synthesizing anything.

For every cue the table shows its slot, the silence inserted before it and
where it actually starts once overlapping cues have pushed it later.
Overlaps, inverted timings and empty cues are listed below the table.`,
	Args: cobra.ExactArgs(1),
	RunE: runCues,
}

func init() {
	rootCmd.AddCommand(cuesCmd)
}

func runCues(cmd *cobra.Command, args []string) error {
	sub, err := subtitle.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}

	cues := sub.Cues()
	report := subtitle.Analyze(cues)
	logger.Debugw("Analyzed cues", "cues", report.Cues, "issues", len(report.Issues))

	fmt.Fprintln(cmd.OutOrStdout(), renderCueReport(sub, report))
	return nil
}

func renderCueReport(sub *subtitle.Subtitle, report subtitle.Report) string {
	headers := []string{"#", "Start", "End", "Length", "Gap", "Lands at", "Drift", "Text"}
	aligns := []columnAlignment{
		alignRight, alignRight, alignRight, alignRight,
		alignRight, alignRight, alignRight, alignLeft,
	}

	rows := make([][]string, 0, len(report.Placements))
	for _, p := range report.Placements {
		entry := sub.Entries[p.Index]
		drift := ""
		if p.DriftMs > 0 {
			drift = "+" + strconv.FormatUint(p.DriftMs, 10) + "ms"
		}
		rows = append(rows, []string{
			strconv.Itoa(p.Index + 1),
			formatMs(p.NominalStartMs),
			formatDuration(entry.EndTime),
			formatMs(p.DurationMs),
			formatMs(p.GapMs),
			formatMs(p.ActualStartMs),
			drift,
			truncateText(entry.Text, maxCueText),
		})
	}

	footer := []string{
		"", "", "", formatMs(report.SpeechMs), formatMs(report.SilenceMs),
		formatMs(report.TotalMs), "", "total",
	}

	var sb strings.Builder
	sb.WriteString(renderTable(headers, rows, aligns, footer))
	if len(report.Issues) > 0 {
		sb.WriteString("\n\nIssues:\n")
		for _, issue := range report.Issues {
			sb.WriteString("  - " + issue.String() + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// h:mm:ss.mmm
func formatMs(ms uint64) string {
	return formatDuration(time.Duration(ms) * time.Millisecond)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%d:%02d:%02d.%03d",
		ms/3_600_000,
		(ms/60_000)%60,
		(ms/1000)%60,
		ms%1000,
	)
}

// single line, at most n runes
func truncateText(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
