package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/nijaru/yt-mp3/errors"
	"github.com/nijaru/yt-mp3/extractor"
	"github.com/nijaru/yt-mp3/middleware"
	"github.com/nijaru/yt-mp3/models"
	"github.com/nijaru/yt-mp3/utils"
	"github.com/nijaru/yt-mp3/validation"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const maxRequestBody = 64 * 1024

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Recorder appends gateway outcomes to the conversion ledger.
type Recorder interface {
	RecordConversion(ctx context.Context, c *models.Conversion) error
}

// Archiver keeps a copy of produced audio.
type Archiver interface {
	ArchiveAudio(ctx context.Context, videoID, requestID string, data []byte) (string, error)
}

type GatewayConfig struct {
	TempDir        string
	InfoTimeout    time.Duration
	ConvertTimeout time.Duration
	MaxAudioBytes  int64
}

// Gateway serves the info and convert actions on a single endpoint. It holds
// no per-request state.
type Gateway struct {
	metadata extractor.MetadataProvider
	audio    extractor.AudioExtractor
	config   GatewayConfig
	recorder Recorder
	archiver Archiver
}

type GatewayOption func(*Gateway)

func WithRecorder(r Recorder) GatewayOption {
	return func(g *Gateway) {
		g.recorder = r
	}
}

func WithArchiver(a Archiver) GatewayOption {
	return func(g *Gateway) {
		g.archiver = a
	}
}

func NewGateway(metadata extractor.MetadataProvider, audio extractor.AudioExtractor, cfg GatewayConfig, opts ...GatewayOption) *Gateway {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.InfoTimeout <= 0 {
		cfg.InfoTimeout = 30 * time.Second
	}
	if cfg.ConvertTimeout <= 0 {
		cfg.ConvertTimeout = 10 * time.Minute
	}
	g := &Gateway{
		metadata: metadata,
		audio:    audio,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// outcome is filled in while a request is handled and recorded at the end.
type outcome struct {
	requestID string
	videoID   string
	action    models.Action
	bytes     int64
	err       error
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "Gateway.ServeHTTP"

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		respondError(w, r, apperrors.MethodNotAllowed(op))
		return
	}

	start := time.Now()
	out := &outcome{requestID: requestIDFrom(r)}
	defer func() {
		g.record(r, out, time.Since(start))
	}()

	var req models.ConvertRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		out.err = apperrors.InvalidInput(op, err, apperrors.MsgInvalidBody)
		respondError(w, r, out.err)
		return
	}
	out.action = req.Action

	if req.URL == "" {
		out.err = apperrors.InvalidInput(op, nil, apperrors.MsgURLRequired)
		respondError(w, r, out.err)
		return
	}

	videoID, ok := validation.ExtractVideoID(req.URL)
	if !ok {
		out.err = apperrors.InvalidInput(op, nil, apperrors.MsgInvalidURL)
		respondError(w, r, out.err)
		return
	}
	out.videoID = videoID

	switch req.Action {
	case models.ActionInfo:
		out.err = g.handleInfo(w, r, videoID)
	case models.ActionConvert:
		out.bytes, out.err = g.handleConvert(w, r, videoID, out.requestID)
	default:
		out.err = apperrors.InvalidInput(op, nil, apperrors.MsgInvalidAction)
	}

	if out.err != nil {
		respondError(w, r, out.err)
	}
}

func (g *Gateway) handleInfo(w http.ResponseWriter, r *http.Request, videoID string) error {
	const op = "Gateway.handleInfo"
	logger := middleware.GetLogger(r.Context()).WithField("video_id", videoID)

	ctx, cancel := context.WithTimeout(r.Context(), g.config.InfoTimeout)
	defer cancel()

	meta, err := g.metadata.Metadata(ctx, videoID)
	if err != nil {
		return apperrors.Provider(op, err)
	}

	info := models.VideoInfo{
		Title:     meta.Title,
		Thumbnail: meta.Thumbnail,
		Duration:  utils.FormatDuration(meta.Duration),
		Channel:   meta.Channel,
		VideoID:   videoID,
	}
	if info.Thumbnail == "" {
		info.Thumbnail = extractor.ThumbnailURL(videoID)
	}

	if err := utils.WriteJSON(w, http.StatusOK, info); err != nil {
		logger.WithError(err).Error("Failed to encode video info")
		return nil
	}
	logger.WithField("title", info.Title).Info("Video info sent")
	return nil
}

func (g *Gateway) handleConvert(w http.ResponseWriter, r *http.Request, videoID, requestID string) (int64, error) {
	const op = "Gateway.handleConvert"
	logger := middleware.GetLogger(r.Context()).WithField("video_id", videoID)

	ctx, cancel := context.WithTimeout(r.Context(), g.config.ConvertTimeout)
	defer cancel()

	workDir, err := os.MkdirTemp(g.config.TempDir, fmt.Sprintf("%s-%s-*", safePathPart(videoID), safePathPart(requestID)))
	if err != nil {
		return 0, apperrors.Internal(op, errors.Wrap(err, "creating work directory"))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.WithError(err).WithField("dir", workDir).Error("Failed to remove work directory")
		}
	}()

	path, err := g.audio.ExtractAudio(ctx, videoID, workDir)
	if err != nil {
		return 0, apperrors.Extraction(op, err)
	}

	data, err := readAudio(path, g.config.MaxAudioBytes)
	if err != nil {
		return 0, apperrors.Extraction(op, err)
	}

	if g.archiver != nil {
		if key, err := g.archiver.ArchiveAudio(r.Context(), videoID, requestID, data); err != nil {
			logger.WithError(err).Error("Failed to archive audio")
		} else {
			logger.WithField("key", key).Info("Audio archived")
		}
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", contentDisposition(videoID))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.WithError(err).Warn("Client went away while receiving audio")
	}

	logger.WithField("bytes", len(data)).Info("Audio sent")
	return int64(len(data)), nil
}

func readAudio(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening extracted audio")
	}
	defer f.Close()

	reader := io.Reader(f)
	if maxBytes > 0 {
		reader = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "reading extracted audio")
	}
	if len(data) == 0 {
		return nil, errors.New("extracted audio is empty")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errors.Errorf("extracted audio exceeds %d bytes", maxBytes)
	}
	return data, nil
}

func (g *Gateway) record(r *http.Request, out *outcome, elapsed time.Duration) {
	if g.recorder == nil {
		return
	}

	c := &models.Conversion{
		RequestID: out.requestID,
		VideoID:   out.videoID,
		Action:    out.action,
		Status:    models.StatusSucceeded,
		Bytes:     out.bytes,
		ElapsedMS: elapsed.Milliseconds(),
	}
	switch {
	case out.err == nil:
	case apperrors.IsClientError(out.err):
		c.Status = models.StatusRejected
	default:
		c.Status = models.StatusFailed
	}

	// The request context may already be cancelled by a departed client.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.recorder.RecordConversion(ctx, c); err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("Failed to record conversion")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.As(err)

	entry := middleware.GetLogger(r.Context()).WithFields(logrus.Fields{
		"op":     appErr.Op,
		"status": appErr.Code,
	})
	if appErr.Err != nil {
		entry = entry.WithError(appErr.Err)
	}
	if appErr.Code >= http.StatusInternalServerError {
		entry.Error(appErr.Message)
	} else {
		entry.Warn(appErr.Message)
	}

	utils.HandleError(w, appErr.Message, appErr.Code)
}

func requestIDFrom(r *http.Request) string {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return id
	}
	return uuid.New().String()
}

func safePathPart(s string) string {
	s = unsafePathChars.ReplaceAllString(s, "_")
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}

func contentDisposition(videoID string) string {
	return fmt.Sprintf(`attachment; filename="%s.mp3"`, safePathPart(videoID))
}
