// Package ui holds the lipgloss styles shared by the CLI commands.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // blue
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

// RenderAccent highlights informational markers.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderPass marks successful outcomes.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn marks conditions worth attention but not failures.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderErr marks failures.
func RenderErr(s string) string { return errStyle.Render(s) }

// RenderDim de-emphasizes secondary detail like timestamps and ids.
func RenderDim(s string) string { return dimStyle.Render(s) }

// RenderBold emphasizes headings.
func RenderBold(s string) string { return boldStyle.Render(s) }
