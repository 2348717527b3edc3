package ui

import tea "github.com/charmbracelet/bubbletea"

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

func helpText(mode Mode, hasQueue bool) string {
	if mode == ModeRecord {
		return "r record/save  s discard  q quit"
	}
	s := "space pause  +/- volume  l loop  s stop"
	if hasQueue {
		s += "  n/p track"
	}
	s += "  q quit"
	return s
}
