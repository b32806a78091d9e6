package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// Console writes notifications and run summaries to a terminal. It satisfies
// Sender so it can sit in the notifier's channel list alongside Telegram and
// Discord.
type Console struct {
	out io.Writer
}

// NewConsole creates a console sender writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a console sender writing to w, for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Name returns the sender identifier.
func (c *Console) Name() string { return "console" }

// Send prints the notification as a single compact line.
func (c *Console) Send(_ context.Context, title, message string) error {
	_, err := fmt.Fprintf(c.out, "[%s] %s | %s\n", time.Now().Format("15:04:05"), title, message)
	return err
}

// ToolLine is one selected tool row in the run summary.
type ToolLine struct {
	Name   string
	Weight float64
	Signal float64
}

// RunSummaryInput bundles everything PrintRunSummary needs.
type RunSummaryInput struct {
	RunID          string
	MarketTitle    string
	MarketID       string
	CurrentPrice   float64
	Tools          []ToolLine
	Threshold      float64
	FinalScore     float64
	ScoreTriggered bool
	WatchState     string
	WatcherTicks   int
	BetPlaced      bool
	BetSide        string
	BetAmount      float64
	UsedFallback   bool
	Stale          bool
}

// PrintRunSummary renders the end-of-run summary table.
func (c *Console) PrintRunSummary(in RunSummaryInput) {
	fmt.Fprintf(c.out, "\n=== RUN SUMMARY %s ===\n", in.RunID)

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Field", "Value")
	tbl.Append("Market", truncate(in.MarketTitle, 48))
	tbl.Append("Market ID", in.MarketID)
	tbl.Append("Current Price", fmt.Sprintf("%.4f", in.CurrentPrice))
	for _, t := range in.Tools {
		tbl.Append("Tool", fmt.Sprintf("%s  w=%.2f  signal=%.4f", t.Name, t.Weight, t.Signal))
	}
	tbl.Append("Threshold", fmt.Sprintf("%.2f", in.Threshold))
	tbl.Append("Final Score", fmt.Sprintf("%.6f", in.FinalScore))
	tbl.Append("Score Triggered", mark(in.ScoreTriggered))
	if in.WatchState != "" {
		tbl.Append("Watch Result", in.WatchState)
		tbl.Append("Watcher Ticks", fmt.Sprintf("%d", in.WatcherTicks))
	}
	tbl.Append("Bet Placed", mark(in.BetPlaced))
	if in.BetPlaced {
		tbl.Append("Bet Side", in.BetSide)
		tbl.Append("Bet Amount", fmt.Sprintf("$%.2f", in.BetAmount))
	}
	if in.UsedFallback {
		tbl.Append("Selector", "fallback (LLM unavailable)")
	}
	tbl.Render()

	if in.Stale {
		fmt.Fprintln(c.out, "  !! market data unchanged across recent runs")
	}
}

// PrintToolList renders the registered tools as a name/description table.
func (c *Console) PrintToolList(infos []domain.ToolInfo) {
	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Tool", "Description")
	for _, info := range infos {
		tbl.Append(info.Name, truncate(info.Description, 72))
	}
	tbl.Render()
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
