package app

// Key binding constants used in handleKey.
const (
	KeyQuit       = "q"
	KeyQuitUpper  = "Q"
	KeyCtrlC      = "ctrl+c"
	KeyTab        = "tab"
	KeyShiftTab   = "shift+tab"
	KeyEnter      = "enter"
	KeyUp         = "up"
	KeyDown       = "down"
	KeyEsc        = "esc"
	KeyDisconnect = "d"
	KeyRefresh    = "r"
	KeyHistory    = "h"
)
