package ui

import "github.com/charmbracelet/lipgloss"

var (
	orange = lipgloss.Color("#FF8C42")
	amber  = lipgloss.Color("#FFB84D")
	gray   = lipgloss.Color("#6B7280")
	red    = lipgloss.Color("#FF4757")
	green  = lipgloss.Color("#2ED573")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(orange).
			MarginTop(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(gray).
			MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	MatchStyle = lipgloss.NewStyle().
			Foreground(green).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	UserStyle = lipgloss.NewStyle().
			Foreground(orange).
			Bold(true)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(gray).
			MarginTop(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(orange).
			Padding(1, 2)
)
