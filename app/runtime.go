// Package app wires the application's long-lived collaborators into one
// explicitly owned runtime, constructed at startup and handed to the listener
// and the CLI surface instead of living as process-wide globals.
package app

import (
	"github.com/spf13/viper"
	"github.com/thinplay-cli/thinplay/config"
	"github.com/thinplay-cli/thinplay/key"
	"github.com/thinplay-cli/thinplay/player"
	"github.com/thinplay-cli/thinplay/report"
)

// Runtime aggregates the report dispatcher, the configuration snapshot source
// and the engine factory a playback session is built from.
type Runtime struct {
	Reports   report.Sink
	Snapshot  func() config.Snapshot
	NewEngine func() player.Engine
}

// New constructs the production runtime from the live configuration.
func New() *Runtime {
	return &Runtime{
		Reports: report.NewDispatcher(
			viper.GetInt(key.ReportsWorkers),
			viper.GetInt(key.ReportsQueueDepth),
		),
		Snapshot:  config.TakeSnapshot,
		NewEngine: func() player.Engine { return player.NewMPV() },
	}
}

// Close drains and stops the report dispatcher. Pending reports are delivered
// before it returns.
func (rt *Runtime) Close() {
	if d, ok := rt.Reports.(*report.Dispatcher); ok {
		d.Close()
	}
}
