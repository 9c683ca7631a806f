package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")) // Pink

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")) // Green

	goneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Grey

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Orange

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")) // Red
)
