package ui

import "github.com/charmbracelet/lipgloss"

// Palette used by the console report renderers. RenderBatchTable
// applies it only when its useColor argument is true; RenderQueueStats
// always styles its header row.
var (
	ColorAccent = lipgloss.Color("39")  // blue
	ColorPass   = lipgloss.Color("42")  // green
	ColorWarn   = lipgloss.Color("178") // amber
	ColorMuted  = lipgloss.Color("243") // gray
)
