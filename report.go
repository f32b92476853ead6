package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chazu/orient/pkg/geom"
	"github.com/chazu/orient/pkg/orient"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorDim    = lipgloss.Color("240")

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleOK      = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconArrow   = "→"
)

// renderRun prints a RunResult as a styled report. Jobs are printed before
// any errors.
func renderRun(w io.Writer, r RunResult) {
	if len(r.Jobs) == 0 && len(r.Errors) == 0 {
		fmt.Fprintln(w, styleDim.Render("no orient jobs"))
		return
	}

	for _, j := range r.Jobs {
		renderJob(w, j)
	}
	if len(r.Jobs) > 0 {
		fmt.Fprintf(w, "%s %s objects produced, %s in scene\n",
			styleTitle.Render("total"),
			styleNumber.Render(fmt.Sprint(r.Produced)),
			styleNumber.Render(fmt.Sprint(r.Objects)))
	}

	if len(r.Errors) > 0 {
		heading := " script failed"
		if len(r.Jobs) > 0 {
			heading = " run failed"
		}
		fmt.Fprintln(w, styleError.Render(iconError)+heading)
		for _, e := range r.Errors {
			if e.Line > 0 {
				fmt.Fprintf(w, "  line %d: %s\n", e.Line, e.Message)
			} else {
				fmt.Fprintf(w, "  %s\n", e.Message)
			}
		}
	}
}

func renderJob(w io.Writer, j JobResult) {
	mode := "move last"
	if j.Copy {
		mode = "copy"
	}
	fmt.Fprintf(w, "%s %s\n", styleTitle.Render(fmt.Sprintf("job %d", j.Index+1)), styleDim.Render("("+mode+")"))

	if j.Error != "" {
		fmt.Fprintf(w, "  %s rejected: %s\n", styleError.Render(iconError), j.Error)
		return
	}

	for _, t := range j.Results {
		if t.Success {
			action := "moved"
			if t.Copied {
				action = fmt.Sprintf("copied %d", len(t.Objects))
			}
			line := fmt.Sprintf("  %s target %d %s %s", styleOK.Render(iconSuccess), t.Index+1, iconArrow, action)
			if t.Transform != nil {
				line += styleDim.Render(fmt.Sprintf("  scale %s, rotate %s°",
					formatFloat(t.Transform.Scale), formatFloat(t.Transform.Angle*180/math.Pi)))
			}
			fmt.Fprintln(w, line)
			continue
		}
		fmt.Fprintf(w, "  %s target %d %s\n", styleError.Render(iconError), t.Index+1, t.Error)
	}

	counts := fmt.Sprintf("%d of %d targets oriented", j.Succeeded, j.Targets)
	if j.Succeeded == j.Targets {
		fmt.Fprintln(w, "  "+styleOK.Render(counts))
	} else {
		fmt.Fprintln(w, "  "+styleWarning.Render(counts))
	}
}

// renderTransform prints a solved transform.
func renderTransform(w io.Writer, t *orient.Transform) {
	rows := [][2]string{
		{"scale", formatFloat(t.Scale())},
		{"axis", formatVec(t.Axis())},
		{"angle", fmt.Sprintf("%s rad (%s°)", formatFloat(t.Angle()), formatFloat(t.Angle()*180/math.Pi))},
		{"translation", formatVec(t.Translation())},
	}
	q := t.Quaternion()
	rows = append(rows, [2]string{"quaternion", fmt.Sprintf("%s %s %s %s",
		formatFloat(q[0]), formatFloat(q[1]), formatFloat(q[2]), formatFloat(q[3]))})

	fmt.Fprintln(w, styleTitle.Render("transform"))
	for _, r := range rows {
		fmt.Fprintf(w, "  %s %s\n", styleDim.Render(fmt.Sprintf("%-12s", r[0])), r[1])
	}
}

func formatVec(v geom.Vector3) string {
	return strings.Join([]string{formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z)}, ", ")
}

// formatFloat prints up to six decimals and clears negative zero.
func formatFloat(f float64) string {
	if math.Abs(f) < 5e-7 {
		f = 0
	}
	s := fmt.Sprintf("%.6f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
