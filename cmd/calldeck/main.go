// calldeck is an operator dashboard for a realtime voice-agent call
// pipeline: it issues a room session against the backend, follows the live
// transcript and tool timeline over the room's side channel, and shows the
// caller's latest post-call summary.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/calldeck/calldeck/internal/api"
	"github.com/calldeck/calldeck/internal/app"
	"github.com/calldeck/calldeck/internal/config"
	"github.com/calldeck/calldeck/internal/history"
	"github.com/calldeck/calldeck/internal/logger"
	"github.com/calldeck/calldeck/internal/state"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	log := logger.New(cfg.LogLevel, cfg.LogJSON)

	store := state.NewStore()
	client := api.New(cfg.APIURL, log)

	hist, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		// The dashboard works without a call log.
		log.WithError(err).Warn("call history unavailable")
		hist = nil
	} else {
		defer hist.Close()
	}

	m := app.New(store, client, hist, log)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "calldeck: %v\n", err)
		os.Exit(1)
	}
}
