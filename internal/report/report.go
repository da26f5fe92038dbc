// Package report renders run summaries, plans and history as terminal
// tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/specialistvlad/buildgridgo/internal/gate"
	"github.com/specialistvlad/buildgridgo/internal/history"
	"github.com/specialistvlad/buildgridgo/internal/job"
	"github.com/specialistvlad/buildgridgo/internal/jobstore"
	"github.com/specialistvlad/buildgridgo/internal/trigger"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		StyleFunc(func(int, int) lipgloss.Style { return cellStyle }).
		Headers(headers...)
}

func status(s jobstore.Status) string {
	switch s {
	case jobstore.StatusSucceeded:
		return okStyle.Render(string(s))
	case jobstore.StatusFailed:
		return failStyle.Render(string(s))
	}
	return mutedStyle.Render(string(s))
}

func publishState(p jobstore.PublishState) string {
	switch p {
	case jobstore.PublishPublished:
		return okStyle.Render(string(p))
	case jobstore.PublishFailed:
		return failStyle.Render(string(p))
	}
	return mutedStyle.Render(string(p))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Jobs writes one row per job result.
func Jobs(w io.Writer, title string, results []*jobstore.Result) error {
	t := newTable("JOB", "TARGET", "CHANNEL", "OS", "STATUS", "PHASE", "EXIT", "DURATION", "PUBLISH")
	for _, r := range results {
		exit := "-"
		if r.Status == jobstore.StatusFailed {
			exit = strconv.Itoa(r.ExitCode)
		}
		t.Row(r.JobID, r.Triple, r.Channel, r.HostOS, status(r.Status), dash(r.FailedPhase), exit,
			r.Duration.Round(time.Millisecond).String(), publishState(r.Publish))
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", titleStyle.Render(title), t.Render())
	return err
}

// Plan writes the jobs an admitted ref expands to, with what the release
// gate would do for each of them if it succeeded.
func Plan(w io.Writer, trig trigger.Context, jobs []*job.Spec) error {
	t := newTable("JOB", "TARGET", "CHANNEL", "OS", "TESTS", "ON SUCCESS")
	for _, spec := range jobs {
		d := spec.Target
		tests := "run"
		if !spec.TestsEnabled() {
			tests = "disabled"
		}
		onSuccess := "build only"
		if gate.Evaluate(spec, true, trig, gate.ReleaseChannel).Publish() {
			onSuccess = "publish " + gate.ArtifactPattern(spec.CrateName, trig.Tag, d.Triple())
		}
		t.Row(spec.ID, d.Triple(), string(d.Channel()), string(d.HostOS()), tests, onSuccess)
	}
	title := fmt.Sprintf("Plan for %s (%d jobs)", dash(trig.Ref), len(jobs))
	_, err := fmt.Fprintf(w, "%s\n%s\n", titleStyle.Render(title), t.Render())
	return err
}

// Runs writes recorded pipeline runs.
func Runs(w io.Writer, runs []history.Run) error {
	t := newTable("RUN", "CRATE", "REF", "STARTED", "DURATION", "JOBS", "FAILED", "PUBLISH FAILURES")
	for _, r := range runs {
		t.Row(r.ID, r.Crate, dash(r.Ref), r.StartedAt.Format(time.RFC3339),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String(),
			strconv.Itoa(r.Jobs), strconv.Itoa(r.Failed), strconv.Itoa(r.PublishFailures))
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", titleStyle.Render("Run history"), t.Render())
	return err
}
