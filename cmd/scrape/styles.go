package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/scraper"
	"github.com/maltedev/supplier-scraper/internal/supplier"
)

// palette holds the terminal styles of the CLI output.
type palette struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	box     lipgloss.Style
}

func newPalette() *palette {
	return &palette{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).
			Padding(0, 1),
	}
}

// progressLine renders "[n/total] status url".
func (p *palette) progressLine(pr scraper.Progress) string {
	counter := p.muted.Render(fmt.Sprintf("[%d/%d]", pr.Done, pr.Total))

	var status string
	switch kind := scraper.IgnoredKindFor(pr.Err); {
	case pr.Err == nil:
		status = p.success.Render("added    ")
	case kind == models.IgnoredDuplicate:
		status = p.warning.Render("skipped  ")
	default:
		status = p.failure.Render("failed   ")
	}

	line := counter + " " + status + " " + pr.URL
	if pr.Product != nil {
		line += p.muted.Render(" (" + pr.Product.SupplierName + ")")
	}
	if pr.Err != nil {
		line += "\n" + p.muted.Render("         "+pr.Err.Error())
	}
	return line
}

func (p *palette) summary(s *models.BatchSummary) string {
	rows := []string{
		p.title.Render("Batch summary"),
		"total    " + strconv.Itoa(s.Total),
		p.success.Render("added    " + strconv.Itoa(s.Added)),
		p.warning.Render("skipped  " + strconv.Itoa(s.Skipped)),
		p.failure.Render("failed   " + strconv.Itoa(s.Failed)),
	}
	for _, e := range s.Errors {
		rows = append(rows, p.muted.Render("  "+e.URL+": "+e.Error))
	}
	return p.box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (p *palette) supplierLine(c supplier.Config) string {
	mode := "static"
	if c.RequiresRendering {
		mode = "rendered"
	}
	return fmt.Sprintf("  %-12s %-20s %s",
		c.DisplayName,
		p.muted.Render(c.MatchKey),
		mode+p.muted.Render(fmt.Sprintf(" pacing %s-%s", c.Pacing.Min, c.Pacing.Max)))
}
