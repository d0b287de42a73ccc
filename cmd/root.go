// Package cmd implements the command-line interface for thinplay.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thinplay-cli/thinplay/app"
	"github.com/thinplay-cli/thinplay/config"
	"github.com/thinplay-cli/thinplay/icon"
	"github.com/thinplay-cli/thinplay/key"
	"github.com/thinplay-cli/thinplay/listen"
	"github.com/thinplay-cli/thinplay/log"
	"github.com/thinplay-cli/thinplay/util"
	"github.com/thinplay-cli/thinplay/where"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().String("host", "", "Hostname or IP of the media server")
	lo.Must0(viper.BindPFlag(key.ServerHost, rootCmd.PersistentFlags().Lookup("host")))

	rootCmd.PersistentFlags().String("port", "", "Port of the media server")
	lo.Must0(viper.BindPFlag(key.ServerPort, rootCmd.PersistentFlags().Lookup("port")))

	rootCmd.PersistentFlags().BoolP("fullscreen", "f", false, "Start playback in fullscreen")
	lo.Must0(viper.BindPFlag(key.PlaybackFullscreen, rootCmd.PersistentFlags().Lookup("fullscreen")))

	rootCmd.PersistentFlags().BoolP("playlist", "p", true, "Queue sibling episodes as a playlist")
	lo.Must0(viper.BindPFlag(key.PlaybackPlaylist, rootCmd.PersistentFlags().Lookup("playlist")))
}

// rootCmd connects to the media server and serves play commands until interrupted.
var rootCmd = &cobra.Command{
	Use:   "thinplay",
	Short: "A remote-controlled playback client for your media server",
	Long:  "thinplay joins a media server over a persistent connection,\nwaits for play commands, drives mpv sessions for them and reports\nplayback progress back to the server.",
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		if viper.GetString(key.ServerHost) == "" {
			handleErr(fmt.Errorf("no server host configured; set %s or pass --host", key.ServerHost))
		}

		// Leftover playlist files from crashed sessions serve no one. Done
		// before the listener starts so it cannot race a session's own
		// playlist file.
		if err := util.Delete(where.Temp()); err != nil {
			log.Debugf("clean temp dir: %v", err)
		}

		rt := app.New()
		defer rt.Close()

		listener := listen.New(rt)
		handleErr(listener.Start())
		defer listener.Stop()

		fmt.Printf("%s listening for play commands from %s\n",
			icon.Get(icon.Connected), config.ServerURL())

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
		<-interrupt

		fmt.Println("shutting down")
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), util.Capitalize(strings.Trim(err.Error(), " \n")))
		os.Exit(1)
	}
}
