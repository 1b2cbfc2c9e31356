package extractor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/nijaru/yt-mp3/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// YtDlp implements MetadataProvider and AudioExtractor by invoking yt-dlp.
type YtDlp struct {
	path    string
	quality string
	runner  CommandRunner
}

type YtDlpOption func(*YtDlp)

func WithYtDlpPath(path string) YtDlpOption {
	return func(y *YtDlp) {
		y.path = path
	}
}

// WithAudioQuality sets the yt-dlp --audio-quality value; "0" is the best VBR.
func WithAudioQuality(quality string) YtDlpOption {
	return func(y *YtDlp) {
		y.quality = quality
	}
}

func WithCommandRunner(runner CommandRunner) YtDlpOption {
	return func(y *YtDlp) {
		y.runner = runner
	}
}

func NewYtDlp(opts ...YtDlpOption) *YtDlp {
	y := &YtDlp{
		path:    "yt-dlp",
		quality: "0",
		runner:  ExecRunner{},
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// ytDlpJSON is the subset of `yt-dlp -J` output we read. Pointer fields
// distinguish absent values from zero values.
type ytDlpJSON struct {
	ID        string   `json:"id"`
	Title     *string  `json:"title"`
	Uploader  *string  `json:"uploader"`
	Channel   *string  `json:"channel"`
	Duration  *float64 `json:"duration"`
	Thumbnail *string  `json:"thumbnail"`
}

func (y *YtDlp) Metadata(ctx context.Context, videoID string) (*models.Metadata, error) {
	output, err := y.runner.Run(ctx, y.path,
		"--dump-single-json",
		"--no-playlist",
		"--no-warnings",
		"--skip-download",
		WatchURL(videoID),
	)
	if err != nil {
		return nil, errors.Wrap(err, "yt-dlp metadata lookup")
	}

	return parseYtDlpMetadata(videoID, output)
}

func parseYtDlpMetadata(videoID string, output []byte) (*models.Metadata, error) {
	var data ytDlpJSON
	if err := json.Unmarshal(output, &data); err != nil {
		return nil, errors.Wrap(err, "parsing yt-dlp metadata")
	}

	if data.Title == nil || *data.Title == "" {
		return nil, errors.New("yt-dlp metadata has no title")
	}

	meta := &models.Metadata{
		VideoID:   videoID,
		Title:     *data.Title,
		Thumbnail: ThumbnailURL(videoID),
	}
	switch {
	case data.Uploader != nil && *data.Uploader != "":
		meta.Channel = *data.Uploader
	case data.Channel != nil:
		meta.Channel = *data.Channel
	}
	if data.Duration != nil {
		meta.Duration = *data.Duration
	}
	if data.Thumbnail != nil && *data.Thumbnail != "" {
		meta.Thumbnail = *data.Thumbnail
	}

	return meta, nil
}

func (y *YtDlp) ExtractAudio(ctx context.Context, videoID, outDir string) (string, error) {
	logger := logrus.WithFields(logrus.Fields{
		"video_id": videoID,
		"out_dir":  outDir,
	})
	logger.Info("Starting audio extraction")

	outTemplate := filepath.Join(outDir, "audio.%(ext)s")
	_, err := y.runner.Run(ctx, y.path,
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", y.quality,
		"--format", "bestaudio/best",
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--output", outTemplate,
		WatchURL(videoID),
	)
	if err != nil {
		return "", errors.Wrap(err, "yt-dlp audio extraction")
	}

	path := filepath.Join(outDir, "audio.mp3")
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(err, "locating extracted audio")
	}
	if info.Size() == 0 {
		return "", errors.New("yt-dlp produced an empty audio file")
	}

	logger.WithField("bytes", info.Size()).Info("Audio extraction completed")
	return path, nil
}

var (
	_ MetadataProvider = (*YtDlp)(nil)
	_ AudioExtractor   = (*YtDlp)(nil)
)
