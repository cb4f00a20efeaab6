package clip_downloader

import "strconv"

// VideoQuality represents a clip video quality option
type VideoQuality struct {
	FrameRate float32 `json:"frameRate"`
	Quality   string  `json:"quality"`
	SourceURL string  `json:"sourceURL"`
}

func (q VideoQuality) height() int {
	h, err := strconv.Atoi(q.Quality)
	if err != nil {
		return 0
	}
	return h
}

// ClipAccessToken represents an access token for downloading a clip
type ClipAccessToken struct {
	ID                  string `json:"id"`
	PlaybackAccessToken struct {
		Signature string `json:"signature"`
		Value     string `json:"value"`
	} `json:"playbackAccessToken"`
	VideoQualities []VideoQuality `json:"videoQualities"`
}
