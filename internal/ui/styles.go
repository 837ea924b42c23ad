package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	onlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	unreadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12")).Padding(0, 1)
	senderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	ownStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	questionStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("11"))
	bannerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("9")).Padding(0, 1)
	avatarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("14")).Padding(0, 1).Bold(true)
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false)
)
