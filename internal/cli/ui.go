package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"askdocs/internal/domain"
	"askdocs/internal/usecase"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

func noColor() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}

type styles struct {
	Answer lipgloss.Style
	Label  lipgloss.Style
	Source lipgloss.Style
	Dim    lipgloss.Style
	Warn   lipgloss.Style
	OK     lipgloss.Style
}

// stylesFor returns colored styles for terminals and plain ones otherwise.
func stylesFor(w io.Writer) styles {
	if !isTerminal(w) || noColor() {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		Answer: lipgloss.NewStyle().Bold(true),
		Label:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Source: lipgloss.NewStyle().Foreground(lipgloss.Color("154")),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		OK:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("154")),
	}
}

// printAnswer writes the answer text and, when verbose, each cited snippet.
func printAnswer(w io.Writer, answer *domain.Answer, snippetChars int, showSnippets bool) {
	s := stylesFor(w)
	fmt.Fprintln(w, s.Answer.Render(answer.Text))
	if len(answer.Sources) == 0 {
		return
	}

	labels := make([]string, 0, len(answer.Sources))
	seen := make(map[string]bool)
	for _, src := range answer.Sources {
		if !seen[src.Source] {
			seen[src.Source] = true
			labels = append(labels, src.Source)
		}
	}
	fmt.Fprintf(w, "  %s %s\n", s.Label.Render("Sources:"), s.Source.Render(strings.Join(labels, ", ")))

	if !showSnippets {
		return
	}
	for i, src := range answer.Sources {
		fmt.Fprintf(w, "  [%d] %s %s\n", i+1, s.Source.Render(src.Source),
			s.Dim.Render(fmt.Sprintf("(similarity %.3f)", src.Similarity)))
		fmt.Fprintf(w, "      %s\n", s.Dim.Render(src.Snippet(snippetChars)))
	}
}

// newProgress returns a progress callback drawing a bar on stderr, or nil
// when stderr is not a terminal.
func newProgress(description string) usecase.ProgressFunc {
	if !isTerminal(os.Stderr) {
		return nil
	}

	var bar *progressbar.ProgressBar
	var startTime time.Time
	return func(done, total int, _ string) {
		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(!noColor()),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}
		_ = bar.Set(done)

		if done > 0 && done < total {
			rate := float64(done) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", description, formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
