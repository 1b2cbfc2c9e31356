// Package client drives a single conversion from user input to a saved MP3.
package client

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nijaru/yt-mp3/models"
	"github.com/nijaru/yt-mp3/utils"
	"github.com/nijaru/yt-mp3/validation"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateFetchingInfo State = "fetching_info"
	StateConverting   State = "converting"
	StateReady        State = "ready"
	StateFailed       State = "failed"
)

// Terminal reports whether a new submission may start from s.
func (s State) Terminal() bool {
	return s == StateIdle || s == StateReady || s == StateFailed
}

const (
	progressStart      = 0
	progressInfoSent   = 25
	progressInfoDone   = 50
	progressConverting = 75
	progressDone       = 100
)

// DefaultReleaseDelay gives a download time to start before the artifact
// bytes are dropped.
const DefaultReleaseDelay = time.Second

var (
	ErrBusy     = errors.New("a conversion is already in progress")
	ErrNotReady = errors.New("no converted audio is available")
	ErrReleased = errors.New("converted audio has been released")
)

// Artifact holds converted audio until it is released.
type Artifact struct {
	VideoID  string
	Filename string

	mu       sync.Mutex
	data     []byte
	released bool
}

func newArtifact(videoID string, audio *Audio) *Artifact {
	return &Artifact{
		VideoID:  videoID,
		Filename: audio.Filename,
		data:     audio.Data,
	}
}

func (a *Artifact) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.data)
}

func (a *Artifact) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}

// Release drops the audio bytes. It is safe to call more than once.
func (a *Artifact) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data = nil
	a.released = true
}

func (a *Artifact) writeTo(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return ErrReleased
	}
	return os.WriteFile(path, a.data, 0o644)
}

// Snapshot is the controller state after one transition. Snapshots are never
// modified once published.
type Snapshot struct {
	State    State
	Progress int
	Input    string
	Info     *models.VideoInfo
	Artifact *Artifact
	Err      error
}

// Message is the text to show for a failed snapshot.
func (s Snapshot) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

type Observer func(Snapshot)

// Controller runs one conversion at a time against a Gateway.
type Controller struct {
	gateway      Gateway
	releaseDelay time.Duration
	logger       *logrus.Entry

	mu        sync.Mutex
	current   Snapshot
	observers []Observer
}

type ControllerOption func(*Controller)

func WithReleaseDelay(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.releaseDelay = d
	}
}

func WithLogger(logger *logrus.Entry) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithObserver(o Observer) ControllerOption {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

func NewController(gateway Gateway, opts ...ControllerOption) *Controller {
	c := &Controller{
		gateway:      gateway,
		releaseDelay: DefaultReleaseDelay,
		logger:       logrus.WithField("component", "controller"),
		current:      Snapshot{State: StateIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe registers o for every later transition.
func (c *Controller) Observe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

func (c *Controller) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Submit runs input through validation, info and convert, returning once the
// controller is Ready or Failed. It returns ErrBusy without touching state
// while another submission is in flight, and otherwise the failure that ended
// the run.
func (c *Controller) Submit(ctx context.Context, input string) error {
	c.mu.Lock()
	if !c.current.State.Terminal() {
		c.mu.Unlock()
		return ErrBusy
	}
	previous := c.current.Artifact
	next := Snapshot{State: StateValidating, Progress: progressStart, Input: input}
	c.current = next
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	if previous != nil {
		previous.Release()
	}
	notify(observers, next)

	logger := c.logger.WithField("input", input)

	if err := validation.ValidateURL(input); err != nil {
		logger.WithError(err).Debug("Input rejected")
		return c.fail(next, err)
	}
	url := strings.TrimSpace(input)

	next.State = StateFetchingInfo
	next.Progress = progressInfoSent
	c.publish(next)

	info, err := c.gateway.Info(ctx, url)
	if err != nil {
		logger.WithError(err).Warn("Info request failed")
		return c.fail(next, err)
	}
	next.Info = info
	next.Progress = progressInfoDone
	c.publish(next)

	next.State = StateConverting
	next.Progress = progressConverting
	c.publish(next)

	audio, err := c.gateway.Convert(ctx, url)
	if err != nil {
		logger.WithError(err).Warn("Convert request failed")
		return c.fail(next, err)
	}

	next.State = StateReady
	next.Progress = progressDone
	next.Artifact = newArtifact(info.VideoID, audio)
	c.publish(next)

	logger.WithFields(logrus.Fields{
		"video_id": info.VideoID,
		"bytes":    len(audio.Data),
	}).Info("Conversion ready")
	return nil
}

// Download writes the ready artifact into dir and schedules its release.
// It returns the written path.
func (c *Controller) Download(dir string) (string, error) {
	snap := c.Current()
	if snap.State != StateReady || snap.Artifact == nil {
		return "", ErrNotReady
	}

	name := DownloadName(snap.Info, snap.Artifact)
	path := filepath.Join(dir, name)
	if err := snap.Artifact.writeTo(path); err != nil {
		if errors.Is(err, ErrReleased) {
			return "", err
		}
		return "", errors.Wrap(err, "writing audio")
	}

	time.AfterFunc(c.releaseDelay, snap.Artifact.Release)

	c.logger.WithField("path", path).Info("Audio saved")
	return path, nil
}

// DownloadName derives the saved filename from the video title, falling back
// to the video id.
func DownloadName(info *models.VideoInfo, artifact *Artifact) string {
	var title, videoID string
	if info != nil {
		title, videoID = info.Title, info.VideoID
	}
	if videoID == "" && artifact != nil {
		videoID = artifact.VideoID
	}
	if videoID == "" {
		videoID = "audio"
	}
	return utils.SanitizeFilename(title, videoID)
}

func (c *Controller) publish(next Snapshot) {
	c.mu.Lock()
	c.current = next
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	notify(observers, next)
}

func (c *Controller) fail(from Snapshot, err error) error {
	from.State = StateFailed
	from.Err = err
	c.publish(from)
	return err
}

func notify(observers []Observer, s Snapshot) {
	for _, o := range observers {
		o(s)
	}
}
