// Package session implements the playback session engine: it turns one decoded
// play request into a configured media engine run, tracks per-episode viewing
// state across playlist transitions, and flushes that state to the media
// server when the engine shuts down.
package session

import (
	"encoding/json"
	"fmt"

	"github.com/samber/mo"
)

// WatchInfo is the server-supplied prior viewing state for one episode.
type WatchInfo struct {
	Playback int  `json:"playback"`
	Watched  bool `json:"watched"`
}

// Request is a decoded inbound play command. It is consumed once by a session
// and not retained after the session starts.
type Request struct {
	Title         string                          `json:"title"`
	MediaEndpoint string                          `json:"get_media_endpoint"`
	Season        string                          `json:"season"`
	Episode       string                          `json:"episode"`
	DBID          string                          `json:"db_id"`
	Playlist      []string                        `json:"playlist"`
	WatchInfo     map[string]map[string]WatchInfo `json:"watch_info"`
}

// DecodeRequest parses an inbound play payload and validates the fields a
// session cannot run without.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("parse play payload: %w", err)
	}

	switch {
	case req.MediaEndpoint == "":
		return Request{}, fmt.Errorf("play payload missing get_media_endpoint")
	case req.DBID == "":
		return Request{}, fmt.Errorf("play payload missing db_id")
	case req.Season == "":
		return Request{}, fmt.Errorf("play payload missing season")
	case req.Episode == "":
		return Request{}, fmt.Errorf("play payload missing episode")
	}

	return req, nil
}

// watchState looks up the server-reported viewing state for an episode of the
// request's season.
func (r Request) watchState(episode string) mo.Option[WatchInfo] {
	season, ok := r.WatchInfo[r.Season]
	if !ok {
		return mo.None[WatchInfo]()
	}
	info, ok := season[episode]
	if !ok {
		return mo.None[WatchInfo]()
	}
	return mo.Some(info)
}

// episodes resolves the episodes this session will track: every sibling when
// playlist mode is active, otherwise exactly the requested one.
func (r Request) episodes(playlistActive bool) []string {
	if playlistActive {
		return r.Playlist
	}
	return []string{r.Episode}
}

// EpisodeEndpoint builds the report-endpoint descriptor identifying one
// episode to the media server.
func EpisodeEndpoint(dbID, season, episode string) string {
	return fmt.Sprintf("id=%s&season=%s&episode=%s", dbID, season, episode)
}

// MediaURL builds the canonical playback URL the engine streams from.
func MediaURL(baseURL, mediaEndpoint, dbID, season, episode string) string {
	return fmt.Sprintf("%s/%s?%s", baseURL, mediaEndpoint, EpisodeEndpoint(dbID, season, episode))
}
