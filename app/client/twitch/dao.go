package twitch

import "time"

// ClipFilterType selects which single dimension a clip listing is filtered by.
type ClipFilterType int

const (
	ClipFilterBroadcaster ClipFilterType = iota + 1
	ClipFilterGame
	ClipFilterID
)

var clipFilterKeys = map[ClipFilterType]string{
	ClipFilterBroadcaster: "broadcaster_id",
	ClipFilterGame:        "game_id",
	ClipFilterID:          "id",
}

// QueryKey returns the Helix query parameter for the filter, or "" if unknown.
func (t ClipFilterType) QueryKey() string {
	return clipFilterKeys[t]
}

func (t ClipFilterType) String() string {
	switch t {
	case ClipFilterBroadcaster:
		return "broadcaster"
	case ClipFilterGame:
		return "game"
	case ClipFilterID:
		return "id"
	default:
		return "unknown"
	}
}

// GetClipsParams is the generic clip listing request.
type GetClipsParams struct {
	FilterType ClipFilterType
	IDs        []string
	First      int
	After      string
	Before     string
	StartedAt  time.Time
	EndedAt    time.Time
	IsFeatured *bool
}

// ClipFilter holds the optional listing parameters for broadcaster and game listings.
type ClipFilter struct {
	First      int
	After      string
	Before     string
	StartedAt  time.Time
	EndedAt    time.Time
	IsFeatured *bool
}

type CreateClipParams struct {
	BroadcasterID string
	HasDelay      bool
}

// ClipData is a clip as returned by Helix
type ClipData struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	EmbedURL        string    `json:"embed_url"`
	BroadcasterID   string    `json:"broadcaster_id"`
	BroadcasterName string    `json:"broadcaster_name"`
	CreatorID       string    `json:"creator_id"`
	CreatorName     string    `json:"creator_name"`
	VideoID         string    `json:"video_id"`
	GameID          string    `json:"game_id"`
	Language        string    `json:"language"`
	Title           string    `json:"title"`
	ViewCount       int       `json:"view_count"`
	CreatedAt       time.Time `json:"created_at"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	Duration        float64   `json:"duration"`
	VodOffset       *int      `json:"vod_offset"`
	IsFeatured      bool      `json:"is_featured"`
}

// ClipPage is one page of a clip listing.
type ClipPage struct {
	Data   []*Clip `json:"data"`
	Cursor string  `json:"cursor,omitempty"`
}

type createdClip struct {
	ID      string `json:"id"`
	EditURL string `json:"edit_url"`
}

type User struct {
	ID              string    `json:"id"`
	Login           string    `json:"login"`
	DisplayName     string    `json:"display_name"`
	Type            string    `json:"type"`
	BroadcasterType string    `json:"broadcaster_type"`
	Description     string    `json:"description"`
	ProfileImageURL string    `json:"profile_image_url"`
	OfflineImageURL string    `json:"offline_image_url"`
	CreatedAt       time.Time `json:"created_at"`
}

type Game struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url"`
	IGDBID    string `json:"igdb_id"`
}

type Video struct {
	ID           string    `json:"id"`
	StreamID     string    `json:"stream_id"`
	UserID       string    `json:"user_id"`
	UserLogin    string    `json:"user_login"`
	UserName     string    `json:"user_name"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	PublishedAt  time.Time `json:"published_at"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Viewable     string    `json:"viewable"`
	ViewCount    int       `json:"view_count"`
	Language     string    `json:"language"`
	Type         string    `json:"type"`
	Duration     string    `json:"duration"`
}

// dataResponse is the common Helix envelope.
type dataResponse[T any] struct {
	Data       []T         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination represents pagination information
type Pagination struct {
	Cursor string `json:"cursor,omitempty"`
}

// authResponse represents the response from the OAuth token endpoint
type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}
