// Package extractor holds the external capabilities the gateway delegates to:
// metadata lookup and audio extraction.
package extractor

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nijaru/yt-mp3/models"
)

// MetadataProvider resolves a video identifier to its metadata.
type MetadataProvider interface {
	Metadata(ctx context.Context, videoID string) (*models.Metadata, error)
}

// AudioExtractor writes an MP3 for videoID somewhere under outDir and
// returns its path. outDir is owned by the caller.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoID, outDir string) (string, error)
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", url.PathEscape(videoID))
}
