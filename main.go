// Package main is the entry point for the thinplay application.
package main

import (
	"github.com/samber/lo"
	"github.com/thinplay-cli/thinplay/cmd"
	"github.com/thinplay-cli/thinplay/config"
	"github.com/thinplay-cli/thinplay/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
