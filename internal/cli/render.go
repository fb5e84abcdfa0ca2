package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"reviewlens/internal/model"
)

// stderrNotifier streams pipeline progress to stderr for verbose runs.
type stderrNotifier struct{}

func (stderrNotifier) Progress(lines ...string) {
	for _, l := range lines {
		fmt.Fprintf(os.Stderr, "  %s\n", l)
	}
}

func (stderrNotifier) Errors(lines ...string) {
	for _, l := range lines {
		fmt.Fprintf(os.Stderr, "  ! %s\n", l)
	}
}

// renderReport writes the human-readable report summary.
func renderReport(w io.Writer, report *model.FinalReport, verbose bool) {
	rule := strings.Repeat("═", 59)

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s\n", report.ProductName)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "\n  Overall score:    %.1f/10\n", report.OverallScore)
	fmt.Fprintf(w, "  Reviews analyzed: %d (%s)\n", report.TotalReviewsAnalyzed, strings.Join(report.SourcesUsed, ", "))
	fmt.Fprintf(w, "  Sentiment:        %.1f%% positive / %.1f%% negative / %.1f%% neutral\n",
		report.SentimentBreakdown.Positive, report.SentimentBreakdown.Negative, report.SentimentBreakdown.Neutral)
	fmt.Fprintf(w, "  Fake review risk: %s (%.1f%% flagged)\n",
		report.AnomalyReport.RiskLevel, report.AnomalyReport.FakePercentage)
	fmt.Fprintf(w, "  Sentiment trend:  %s\n", report.DriftReport.Trend)

	if len(report.AspectScores) > 0 {
		fmt.Fprintf(w, "\n  Aspects:\n")
		for _, a := range report.AspectScores {
			fmt.Fprintf(w, "    %-18s %-8s %.2f  (%d mentions)\n", a.Aspect, a.Sentiment, a.Score, a.MentionCount)
		}
	}

	if len(report.Clusters) > 0 {
		fmt.Fprintf(w, "\n  Themes:\n")
		for _, c := range report.Clusters {
			fmt.Fprintf(w, "    %-40s %3d reviews (%s)\n", c.Theme, c.ReviewCount, c.Sentiment)
		}
	}

	fmt.Fprintf(w, "\n  %s\n", report.Verdict)

	if verbose && report.ExecutiveSummary != "" {
		fmt.Fprintf(w, "\n%s\n", report.ExecutiveSummary)
		if report.WhoShouldBuy != "" {
			fmt.Fprintf(w, "\nWho should buy:\n%s\n", report.WhoShouldBuy)
		}
		if report.WhoShouldSkip != "" {
			fmt.Fprintf(w, "\nWho should skip:\n%s\n", report.WhoShouldSkip)
		}
	}
	fmt.Fprintln(w)
}

// writeReportJSON writes the full report to a file.
func writeReportJSON(path string, report *model.FinalReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
