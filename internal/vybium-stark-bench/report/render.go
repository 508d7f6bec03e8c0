package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

// Format selects a report rendering
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat maps a name to a format
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatMarkdown, FormatTable, FormatCSV, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", core.UnknownStrategy("report format", name)
	}
}

// FormatDuration prints milliseconds below one second and seconds above
func FormatDuration(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	if ms < 1000 {
		return fmt.Sprintf("%.1f ms", ms)
	}
	return fmt.Sprintf("%.2f s", ms/1000)
}

func formatSpeedup(s float64) string {
	if s == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fx", s)
}

func formatTime(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return FormatDuration(d)
}

// Render renders the aggregated results
func (a *Aggregator) Render(format Format) (string, error) {
	switch format {
	case FormatMarkdown:
		return a.renderMarkdown(), nil
	case FormatTable:
		return a.renderTable()
	case FormatCSV:
		return a.renderCSV()
	case FormatJSON:
		return a.renderJSON()
	default:
		return "", core.UnknownStrategy("report format", string(format))
	}
}

func (a *Aggregator) renderMarkdown() string {
	var b strings.Builder

	env := DetectEnvironment()
	b.WriteString("# STARK proving benchmark\n\n")
	fmt.Fprintf(&b, "%s, %d cores / %d threads, %.1f GiB, %s %s/%s\n\n",
		env.CPU, env.Cores, env.LogicalCPUs, float64(env.MemoryBytes)/(1<<30), env.GoVersion, env.OS, env.Arch)
	b.WriteString("## Backend comparison\n\n")
	b.WriteString("Speedup is the winterfell median divided by the p3 median.\n\n")
	b.WriteString("| Steps | Columns | Hash | Field | Threads | p3 | winterfell | Speedup |\n")
	b.WriteString("|---:|---:|---|---|---:|---:|---:|---:|\n")
	for _, c := range a.Comparisons() {
		fmt.Fprintf(&b, "| %d | %d | %s | %s | %d | %s | %s | %s |\n",
			c.Steps, c.Columns, c.Hash, c.Field, c.Threads,
			formatTime(c.TimeA), formatTime(c.TimeB), formatSpeedup(c.Speedup))
	}

	b.WriteString("\n## Configurations\n\n")
	b.WriteString("| Steps | Columns | Backend | Hash | Field | Threads | Samples | Median | Mean | Min | Max | StdDev | Proof size |\n")
	b.WriteString("|---:|---:|---|---|---|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range a.Summaries() {
		fmt.Fprintf(&b, "| %d | %d | %s | %s | %s | %d | %d | %s | %s | %s | %s | %s | %d |\n",
			s.Steps, s.Columns, s.Config.Backend, s.Config.Hash, s.Config.Field, s.Config.Threads,
			s.Samples, FormatDuration(s.Median), FormatDuration(s.Mean),
			FormatDuration(s.Min), FormatDuration(s.Max), FormatDuration(s.StdDev), s.ProofSize)
	}

	failures := a.Failures()
	if len(failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		b.WriteString("| Steps | Columns | Backend | Hash | Field | Threads | Kind | Error |\n")
		b.WriteString("|---:|---:|---|---|---|---:|---|---|\n")
		for _, r := range failures {
			fmt.Fprintf(&b, "| %d | %d | %s | %s | %s | %d | %s | %s |\n",
				r.Steps, r.Columns, r.Config.Backend, r.Config.Hash, r.Config.Field, r.Config.Threads,
				r.ErrKind, strings.ReplaceAll(r.Error, "|", "\\|"))
		}
	}
	return b.String()
}

func (a *Aggregator) renderTable() (string, error) {
	data := pterm.TableData{{"Steps", "Columns", "Hash", "Field", "Threads", "p3", "winterfell", "Speedup"}}
	for _, c := range a.Comparisons() {
		data = append(data, []string{
			strconv.Itoa(c.Steps), strconv.Itoa(c.Columns), c.Hash.String(), c.Field.String(),
			strconv.Itoa(c.Threads), formatTime(c.TimeA), formatTime(c.TimeB), formatSpeedup(c.Speedup),
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", err
	}

	failures := a.Failures()
	if len(failures) == 0 {
		return out, nil
	}
	fdata := pterm.TableData{{"Steps", "Columns", "Backend", "Hash", "Field", "Threads", "Kind", "Error"}}
	for _, r := range failures {
		fdata = append(fdata, []string{
			strconv.Itoa(r.Steps), strconv.Itoa(r.Columns), r.Config.Backend.String(), r.Config.Hash.String(),
			r.Config.Field.String(), strconv.Itoa(r.Config.Threads), r.ErrKind.String(), r.Error,
		})
	}
	fout, err := pterm.DefaultTable.WithHasHeader().WithData(fdata).Srender()
	if err != nil {
		return "", err
	}
	return out + "\n\nFailures\n" + fout, nil
}

// renderCSV writes one line per trial, recorded and failed alike
func (a *Aggregator) renderCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"run_id", "steps", "columns", "backend", "hash", "field", "threads", "repeat", "status", "elapsed_ms", "proof_size", "error_kind", "error", "verify_ms"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, r := range a.Results() {
		record := []string{
			r.RunID,
			strconv.Itoa(r.Steps),
			strconv.Itoa(r.Columns),
			r.Config.Backend.String(),
			r.Config.Hash.String(),
			r.Config.Field.String(),
			strconv.Itoa(r.Config.Threads),
			strconv.Itoa(r.Repeat),
			string(r.Status),
			strconv.FormatFloat(float64(r.Elapsed)/float64(time.Millisecond), 'f', 3, 64),
			strconv.Itoa(r.ProofSize),
			r.ErrKind.String(),
			r.Error,
			strconv.FormatFloat(float64(r.VerifyElapsed)/float64(time.Millisecond), 'f', 3, 64),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

type jsonReport struct {
	Environment Environment        `json:"environment"`
	Comparisons []Comparison       `json:"comparisons"`
	Summaries   []Summary          `json:"summaries"`
	Failures    []core.TrialResult `json:"failures"`
	Results     []core.TrialResult `json:"results"`
}

func (a *Aggregator) renderJSON() (string, error) {
	data, err := json.MarshalIndent(jsonReport{
		Environment: DetectEnvironment(),
		Comparisons: a.Comparisons(),
		Summaries:   a.Summaries(),
		Failures:    a.Failures(),
		Results:     a.Results(),
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
