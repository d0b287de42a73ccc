// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"reflect"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/thinplay-cli/thinplay/color"
	"github.com/thinplay-cli/thinplay/constant"
	"github.com/thinplay-cli/thinplay/key"
	"github.com/thinplay-cli/thinplay/style"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Thinplay + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	// register validates and adds a new configuration field to the global registry.
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.ServerHost, "", "Hostname or IP of the media server to join")
	register(key.ServerPort, "8000", "Port of the media server to join")
	register(key.ServerAPIKey, "", "API key presented in join/leave notifications and progress reports.\nStored hex-encoded; use \"thinplay config set "+key.ServerAPIKey+"\" to update it")
	register(key.PlaybackPlaylist, true, "Load all sibling episodes of a play request as an ordered playlist\ninstead of only the requested episode")
	register(key.PlaybackFullscreen, false, "Start the playback window in fullscreen")
	register(key.PlaybackEnglishAudio, false, "Prefer English audio tracks (alang=en,eng,english)")
	register(key.PlaybackEnglishSubs, false, "Prefer English subtitle tracks (slang=en,eng,english)")
	register(key.PlaybackDemuxerMaxMB, 0, "Demuxer forward/back buffer size in MiB.\nOnly applied when greater than 0")
	register(key.PlaybackEventTimeoutSec, 10, "Bounded wait between playback engine event polls, in seconds")
	register(key.ReportsWorkers, 4, "Number of workers servicing the progress report queue")
	register(key.ReportsQueueDepth, 64, "Capacity of the progress report queue.\nReports submitted while the queue is full are dropped and logged")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
}).Parse(`{{ purple .Key }} {{ faint (typename .Value) }}
{{ faint .Description }}
{{ bold "Default:" }} {{ .Value }}
{{ bold "Current:" }} {{ value .Key }}
{{ bold "Env:" }} {{ cyan .Env }}`))
