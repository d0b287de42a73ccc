// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/thinplay-cli/thinplay/constant"
	"github.com/thinplay-cli/thinplay/filesystem"
	"github.com/thinplay-cli/thinplay/key"
	"github.com/thinplay-cli/thinplay/log"
	"github.com/thinplay-cli/thinplay/secret"
	"github.com/thinplay-cli/thinplay/where"
)

// EnvKeyReplacer is a strings.Replacer used to normalize configuration keys into environment variable naming conventions.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// mu guards settings access shared between the CLI surface and session snapshotting.
// A playback session takes a point-in-time Snapshot under this lock and never
// re-reads live configuration afterward.
var mu sync.Mutex

// Setup initializes the global configuration state, including defaults, environment bindings, and localized file resolution.
func Setup() error {
	viper.SetConfigName(constant.Thinplay)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	// Synchronize environment variable bindings.
	viper.SetEnvPrefix(constant.Thinplay)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	// Initialize factory default values.
	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

// Snapshot is an immutable copy of the settings a playback session depends on,
// taken at session start so concurrent configuration edits never affect an
// in-flight session.
type Snapshot struct {
	URL          string
	APIKey       string
	Playlist     bool
	Fullscreen   bool
	EnglishAudio bool
	EnglishSubs  bool
	DemuxerMaxMB int
	EventTimeout time.Duration
}

// TakeSnapshot copies the live configuration under the settings lock.
func TakeSnapshot() Snapshot {
	mu.Lock()
	defer mu.Unlock()

	return Snapshot{
		URL:          serverURL(),
		APIKey:       APIKey(),
		Playlist:     viper.GetBool(key.PlaybackPlaylist),
		Fullscreen:   viper.GetBool(key.PlaybackFullscreen),
		EnglishAudio: viper.GetBool(key.PlaybackEnglishAudio),
		EnglishSubs:  viper.GetBool(key.PlaybackEnglishSubs),
		DemuxerMaxMB: viper.GetInt(key.PlaybackDemuxerMaxMB),
		EventTimeout: time.Duration(viper.GetInt(key.PlaybackEventTimeoutSec)) * time.Second,
	}
}

// ServerURL returns the HTTP base URL of the configured media server.
func ServerURL() string {
	mu.Lock()
	defer mu.Unlock()
	return serverURL()
}

func serverURL() string {
	return "http://" + viper.GetString(key.ServerHost) + ":" + viper.GetString(key.ServerPort)
}

// APIKey returns the decoded API key. A value that fails to decode is treated
// as a legacy plain-text key and returned as-is.
func APIKey() string {
	encoded := viper.GetString(key.ServerAPIKey)
	decoded, err := secret.Decode(encoded)
	if err != nil {
		log.Debugf("api key is not hex-encoded, using raw value: %v", err)
		return encoded
	}
	return decoded
}

// EncodeAPIKey prepares a raw API key value for persistence.
func EncodeAPIKey(raw string) string {
	return secret.Encode(raw)
}
