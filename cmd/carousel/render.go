package main

import (
	"fmt"
	"strings"
	"time"

	"carousel/model"
	"carousel/storage"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	dimColor     = lipgloss.Color("7")
	accentColor  = lipgloss.Color("12")
	successColor = lipgloss.Color("10")
	warningColor = lipgloss.Color("11")
	dangerColor  = lipgloss.Color("9")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(dimColor)
	accentStyle  = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(dangerColor).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor).
			Padding(0, 1)
)

// column widths of the slide table
const (
	textWidth = 36
	urlWidth  = 48
)

// truncate shortens s to width terminal cells.
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(s, width, "…")
}

// pad right-pads s to width terminal cells.
func pad(s string, width int) string {
	return runewidth.FillRight(truncate(s, width), width)
}

func renderProgress(p model.GenerationProgress) string {
	counter := dimStyle.Render(fmt.Sprintf("[%d/%d]", p.StepIndex, p.TotalSteps))
	line := fmt.Sprintf("%s %s", counter, p.Message)

	if p.Sub != nil && p.Sub.Total > 0 {
		line += dimStyle.Render(fmt.Sprintf(" (%d/%d)", p.Sub.Current, p.Sub.Total))
	}
	if p.CostUSD > 0 {
		line += dimStyle.Render(fmt.Sprintf(" $%.4f", p.CostUSD))
	}

	switch p.Step {
	case model.StepCompleted:
		return successStyle.Render("✓ ") + line
	case model.StepFailed:
		return errorStyle.Render("✗ ") + line + "\n  " + errorStyle.Render(p.Error)
	default:
		return accentStyle.Render("• ") + line
	}
}

func renderResult(r *model.OrchestrationResult) string {
	var sb strings.Builder

	if r.Success {
		sb.WriteString(successStyle.Render("Carousel ready"))
	} else {
		sb.WriteString(errorStyle.Render("Generation failed"))
		if r.FailedStep != "" {
			sb.WriteString(dimStyle.Render(" during " + string(r.FailedStep)))
		}
	}
	sb.WriteString(dimStyle.Render(fmt.Sprintf("  run %s, %s", r.RunID, r.Duration.Round(time.Millisecond))))
	sb.WriteString("\n")

	if r.Error != "" {
		sb.WriteString("\n" + errorStyle.Render(r.Error) + "\n")
	}

	if r.Caption != "" {
		sb.WriteString("\n" + titleStyle.Render("Caption") + "\n")
		sb.WriteString(r.Caption + "\n")
	}

	if len(r.Slides) > 0 {
		sb.WriteString("\n" + titleStyle.Render("Slides") + "\n")
		for _, s := range r.Slides {
			text := pad(s.Text, textWidth)
			if s.Text == "" {
				text = dimStyle.Render(pad("(no text)", textWidth))
			}
			image := truncate(s.ImageURL, urlWidth)
			if s.ImageURL == "" {
				image = warningStyle.Render("no image")
			}
			fmt.Fprintf(&sb, "%d. %s %s %s\n", s.Index+1, pad(string(s.Purpose), 9), text, image)
		}
	}

	var failed int
	for _, e := range r.Executions {
		if e.Status == model.ExecutionFailed {
			failed++
		}
	}
	stats := fmt.Sprintf("%d calls, %d failed · %d tokens (%d prompt, %d completion)",
		len(r.Executions), failed, r.TotalTokens.Total, r.TotalTokens.Prompt, r.TotalTokens.Completion)
	if r.Cost != nil {
		stats += fmt.Sprintf(" · $%.4f", r.Cost.TotalUSD)
		if r.Cost.MainProvider != "" {
			stats += fmt.Sprintf(" · mostly %s/%s", r.Cost.MainProvider, r.Cost.MainModel)
		}
	}
	sb.WriteString("\n" + dimStyle.Render(stats))

	return boxStyle.Render(sb.String())
}

func renderModels(providerID string, models []model.ModelInfo) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(providerID))
	if len(models) == 0 {
		sb.WriteString(dimStyle.Render("  no models reported"))
		return sb.String()
	}
	for _, m := range models {
		sb.WriteString("\n  " + m.ID)
		if m.Name != "" && m.Name != m.ID {
			sb.WriteString(dimStyle.Render("  " + truncate(m.Name, 40)))
		}
	}
	return sb.String()
}

type providerRow struct {
	ID           string
	Capabilities []model.Capability
	Configured   bool
	Enabled      bool
	Available    bool
	Problem      string
}

func renderProviders(rows []providerRow) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(pad("PROVIDER", 11) + pad("CAPABILITIES", 30) + "STATUS"))
	for _, r := range rows {
		caps := make([]string, len(r.Capabilities))
		for i, c := range r.Capabilities {
			caps[i] = string(c)
		}

		var status string
		switch {
		case !r.Configured:
			status = dimStyle.Render("not configured")
		case !r.Enabled:
			status = dimStyle.Render("disabled")
		case r.Problem != "":
			status = warningStyle.Render(truncate(r.Problem, 60))
		case r.Available:
			status = successStyle.Render("available")
		default:
			status = errorStyle.Render("unreachable")
		}
		sb.WriteString("\n" + pad(r.ID, 11) + pad(strings.Join(caps, ","), 30) + status)
	}
	return sb.String()
}

func renderBrands(brands []storage.BrandMetadata) string {
	if len(brands) == 0 {
		return dimStyle.Render("no brands stored; add one with `carousel brands import FILE`")
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(pad("ID", 38) + pad("NAME", 28) + "SECTOR"))
	for _, b := range brands {
		sb.WriteString("\n" + pad(b.ID, 38) + pad(b.Name, 28) + dimStyle.Render(b.Sector))
	}
	return sb.String()
}

func renderTotals(brandID string, t storage.UsageTotals) string {
	return fmt.Sprintf("%s\n  calls      %d\n  tokens     %d (%d prompt, %d completion)\n  images     %d\n  cost       $%.4f",
		titleStyle.Render(brandID), t.Executions, t.TotalTokens, t.PromptTokens, t.CompletionTokens, t.ImagesGenerated, t.CostUSD)
}

func renderUsageRows(rows []storage.UsageRow) string {
	if len(rows) == 0 {
		return dimStyle.Render("no usage recorded for this run")
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(pad("AGENT", 18) + pad("MODEL", 32) + pad("TOKENS", 8) + pad("IMAGES", 8) + "COST"))
	for _, r := range rows {
		agent := string(r.AgentType)
		if r.Status == model.ExecutionFailed {
			agent += " ✗"
		}
		fmt.Fprintf(&sb, "\n%s%s%s%s$%.4f",
			pad(agent, 18), pad(r.Provider+"/"+r.Model, 32), pad(fmt.Sprint(r.TotalTokens), 8), pad(fmt.Sprint(r.Images), 8), r.CostUSD)
	}
	return sb.String()
}
