package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
)

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer printing summaries to stdout
func NewRenderer() *Renderer {
	return &Renderer{out: os.Stdout}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the report as Markdown
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(Markdown(report)))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Markdown formats the report
func Markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# charta %s run %s\n\n", report.Mode, report.RunID)
	fmt.Fprintf(&b, "- Created: %s\n", report.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Settings: tolerance %d, %s vectors, bigrams %t\n",
		report.Settings.Tolerance, report.Settings.VectorType, report.Settings.UseBigrams)
	fmt.Fprintf(&b, "- Documents: %d classified, %d skipped\n", report.Summary.Documents, report.Summary.Skipped)
	fmt.Fprintf(&b, "- Elapsed: %.1fs\n\n", report.Summary.ElapsedSecs)

	for _, d := range report.Documents {
		fmt.Fprintf(&b, "## %s\n\n", d.ID)
		b.WriteString("| # | Paragraph | Label | Source | Sentence |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, s := range d.Sentences {
			lbl := s.Label.String()
			if s.TrueLabel != nil && *s.TrueLabel != s.Label {
				lbl += " (true: " + s.TrueLabel.String() + ")"
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
				s.Index, s.Paragraph, lbl, s.Source, escapeCell(s.Text))
		}
		b.WriteString("\n")
	}

	if len(report.Evaluations) > 0 {
		b.WriteString("## Evaluation\n\n")
		b.WriteString("| Tolerance | Vector | Bigrams | Macro P | Macro R | Macro F1 | Micro F1 | Unused labels |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|\n")
		for _, e := range report.Evaluations {
			fmt.Fprintf(&b, "| %d | %s | %t | %.3f | %.3f | %.3f | %.3f | %s |\n",
				e.Settings.Tolerance, e.Settings.VectorType, e.Settings.UseBigrams,
				e.Macro.Precision, e.Macro.Recall, e.Macro.F1, e.Micro.F1, labelList(e.Unused))
		}
		b.WriteString("\n")
	}

	if len(report.Skipped) > 0 {
		b.WriteString("## Skipped documents\n\n")
		for _, s := range report.Skipped {
			fmt.Fprintf(&b, "- %s: %s\n", s.ID, s.Reason)
		}
		b.WriteString("\n")
	}

	if len(report.Signals) > 0 {
		b.WriteString("## Signals\n\n")
		for _, sig := range report.Signals {
			fmt.Fprintf(&b, "- **%s** (%s) %s\n", sig.Type, sig.Severity, sig.Description)
		}
	}

	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func labelList(labels []label.Label) string {
	if len(labels) == 0 {
		return "-"
	}
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.String()
	}
	return strings.Join(names, ", ")
}

// RenderSummary prints a short overview of the run
func (r *Renderer) RenderSummary(report *model.Report) {
	w := r.out
	fmt.Fprintf(w, "\n📜 %s run %s\n", report.Mode, report.RunID)
	fmt.Fprintf(w, "   Documents: %d   Sentences: %d   Skipped: %d   (%.1fs)\n",
		report.Summary.Documents, report.Summary.Sentences, report.Summary.Skipped, report.Summary.ElapsedSecs)

	if len(report.Summary.ByLabel) > 0 {
		fmt.Fprintln(w, "\n   Labels:")
		for _, l := range label.All() {
			if n := report.Summary.ByLabel[l.String()]; n > 0 {
				fmt.Fprintf(w, "     %-13s %5d\n", l, n)
			}
		}

		sources := make([]string, 0, len(report.Summary.BySource))
		for src := range report.Summary.BySource {
			sources = append(sources, src)
		}
		sort.Strings(sources)
		parts := make([]string, len(sources))
		for i, src := range sources {
			parts[i] = fmt.Sprintf("%s %d", src, report.Summary.BySource[src])
		}
		fmt.Fprintf(w, "\n   Assigned by: %s\n", strings.Join(parts, ", "))
	}

	if best := BestEvaluation(report.Evaluations); best != nil {
		fmt.Fprintf(w, "\n   Configurations evaluated: %d\n", len(report.Evaluations))
		fmt.Fprintf(w, "   Best: %s  macro F1 %.3f  micro F1 %.3f\n", best.Settings, best.Macro.F1, best.Micro.F1)
	}

	counts := make(map[model.SignalSeverity]int)
	for _, sig := range report.Signals {
		counts[sig.Severity]++
	}
	if len(report.Signals) > 0 {
		fmt.Fprintf(w, "\n   Signals: %d critical, %d warning, %d info\n",
			counts[model.SeverityCritical], counts[model.SeverityWarning], counts[model.SeverityInfo])
		for _, sig := range report.Signals {
			if sig.Severity == model.SeverityCritical {
				fmt.Fprintf(w, "   ✗ %s\n", sig.Description)
			}
		}
	}
	if report.Summary.Violations == 0 {
		fmt.Fprintln(w, "\n   ✓ Label order and coverage hold for every document")
	}
	fmt.Fprintln(w)
}
