// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Media Server Connection - these keys identify the backend the client joins and reports to.
const (
	ServerHost   = "server.host"
	ServerPort   = "server.port"
	ServerAPIKey = "server.api_key"
)

// Playback Session - these keys configure how the mpv session is set up for each play request.
const (
	PlaybackPlaylist        = "playback.playlist"
	PlaybackFullscreen      = "playback.fullscreen"
	PlaybackEnglishAudio    = "playback.prefer_english_audio"
	PlaybackEnglishSubs     = "playback.prefer_english_subtitles"
	PlaybackDemuxerMaxMB    = "playback.demuxer_max_mb"
	PlaybackEventTimeoutSec = "playback.event_timeout_seconds"
)

// Progress Reporting - these keys size the fire-and-forget report dispatcher.
const (
	ReportsWorkers    = "reports.workers"
	ReportsQueueDepth = "reports.queue_depth"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these settings govern general CLI behavior.
const (
	CliColored = "cli.colored"
)
