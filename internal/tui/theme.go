package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Ink palette
var (
	Ink      = lipgloss.Color("#5FAFD7")
	InkDeep  = lipgloss.Color("#0087D7")
	InkLight = lipgloss.Color("#AFD7FF")
	Paper    = lipgloss.Color("#EEEEEE")
	Pencil   = lipgloss.Color("#9E9E9E")
	Shadow   = lipgloss.Color("#3A3A3A")

	Success = lipgloss.Color("#5FD787")
	Warning = lipgloss.Color("#FFD75F")
	Error   = lipgloss.Color("#FF5F5F")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	SubtitleStyle     = fg(InkLight).Bold(true)
	LogoStyle         = fg(InkDeep).Bold(true)
	ActiveBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(InkDeep).Padding(1, 2)

	LabelStyle   = fg(InkLight)
	ValueStyle   = fg(Paper).Bold(true)
	SuccessStyle = fg(Success).Bold(true)
	WarningStyle = fg(Warning)
	ErrorStyle   = fg(Error).Bold(true)
	InfoStyle    = fg(Ink)
	DimStyle     = fg(Pencil)
	HelpStyle    = fg(Pencil)

	ProgressBarStyle   = fg(InkDeep)
	ProgressEmptyStyle = fg(Shadow)
)

// MiniLogo returns the one-line logo.
func MiniLogo() string {
	return LogoStyle.Render("✎ notesprobe")
}

// Divider returns a horizontal divider.
func Divider(width int) string {
	return DimStyle.Render(strings.Repeat("─", width))
}

// ProgressBar renders percent (0..1) as a bar of the given width.
func ProgressBar(percent float64, width int) string {
	percent = max(0, min(percent, 1))
	filled := int(float64(width) * percent)
	return ProgressBarStyle.Render(strings.Repeat("=", filled)) +
		ProgressEmptyStyle.Render(strings.Repeat("-", width-filled))
}

const (
	CheckMark   = "✓"
	CrossMark   = "✗"
	WarningSign = "⚠"
	BulletPoint = "●"
)
