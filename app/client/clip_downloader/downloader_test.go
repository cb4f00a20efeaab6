package clip_downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDownloader(t *testing.T, clipFound bool) (*Downloader, *httptest.Server) {
	t.Helper()

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/gql", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, clientID, r.Header.Get("Client-ID"))

		var body struct {
			OperationName string            `json:"operationName"`
			Variables     map[string]string `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "VideoAccessToken_Clip", body.OperationName)

		if !clipFound {
			_, _ = w.Write([]byte(`{"data":{"clip":null}}`))
			return
		}

		_, _ = fmt.Fprintf(w, `{"data":{"clip":{
			"id":"1",
			"playbackAccessToken":{"signature":"sig-1","value":"tok-1"},
			"videoQualities":[
				{"quality":"360","sourceURL":"%[1]s/media/360.mp4"},
				{"quality":"1080","sourceURL":"%[1]s/media/1080.mp4"},
				{"quality":"720","sourceURL":"%[1]s/media/720.mp4"}
			]}}}`, srv.URL)
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "sig-1", r.URL.Query().Get("sig"))
		require.Equal(t, "tok-1", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte("video:" + r.URL.Path))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &Downloader{client: srv.Client(), gqlURL: srv.URL + "/gql"}, srv
}

func TestDownloadClipPicksBestQuality(t *testing.T) {
	downloader, _ := newTestDownloader(t, true)

	var buf bytes.Buffer
	n, err := downloader.DownloadClip(context.Background(), "QuaintAssiduousZebraTakeNRG", &buf)
	require.NoError(t, err)
	require.Equal(t, "video:/media/1080.mp4", buf.String())
	require.EqualValues(t, buf.Len(), n)
}

func TestDownloadClipToFile(t *testing.T) {
	downloader, _ := newTestDownloader(t, true)

	outputPath := filepath.Join(t.TempDir(), "test_clip.mp4")
	require.NoError(t, downloader.DownloadClipToFile(context.Background(), "slug", outputPath))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "video:/media/1080.mp4", string(data))
}

func TestDownloadClipNotFound(t *testing.T) {
	downloader, _ := newTestDownloader(t, false)

	outputPath := filepath.Join(t.TempDir(), "missing.mp4")
	err := downloader.DownloadClipToFile(context.Background(), "missing", outputPath)
	require.ErrorIs(t, err, ErrClipNotFound)

	_, statErr := os.Stat(outputPath)
	require.True(t, os.IsNotExist(statErr))
}
