package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/nijaru/yt-mp3/models"
	"github.com/pkg/errors"
)

const (
	MsgInfoFailed    = "Failed to get video information"
	MsgConvertFailed = "Failed to convert video"
)

// Gateway is the client's view of the conversion endpoint.
type Gateway interface {
	Info(ctx context.Context, url string) (*models.VideoInfo, error)
	Convert(ctx context.Context, url string) (*Audio, error)
}

// Audio is a successful convert response. Filename is the server's
// Content-Disposition hint and may be empty.
type Audio struct {
	Filename string
	Data     []byte
}

// GatewayError carries the message shown to the user. Message is the
// server-provided text when the error body was well formed.
type GatewayError struct {
	Status  int
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HTTPGateway talks to the gateway over HTTP.
type HTTPGateway struct {
	endpoint string
	client   *http.Client
	maxBytes int64
}

type HTTPGatewayOption func(*HTTPGateway)

func WithHTTPClient(client *http.Client) HTTPGatewayOption {
	return func(g *HTTPGateway) {
		g.client = client
	}
}

// WithMaxAudioBytes bounds how much of a convert response is read.
func WithMaxAudioBytes(n int64) HTTPGatewayOption {
	return func(g *HTTPGateway) {
		g.maxBytes = n
	}
}

// NewHTTPGateway targets endpoint, the full URL of the convert route.
func NewHTTPGateway(endpoint string, opts ...HTTPGatewayOption) *HTTPGateway {
	g := &HTTPGateway{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Minute},
		maxBytes: 200 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *HTTPGateway) Info(ctx context.Context, url string) (*models.VideoInfo, error) {
	resp, err := g.post(ctx, url, models.ActionInfo)
	if err != nil {
		return nil, &GatewayError{Message: MsgInfoFailed, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp, MsgInfoFailed)
	}

	var info models.VideoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &GatewayError{
			Status:  resp.StatusCode,
			Message: MsgInfoFailed,
			Err:     errors.Wrap(err, "decoding video info"),
		}
	}
	if info.Title == "" || info.VideoID == "" {
		return nil, &GatewayError{
			Status:  resp.StatusCode,
			Message: MsgInfoFailed,
			Err:     errors.New("video info is missing title or videoId"),
		}
	}
	return &info, nil
}

func (g *HTTPGateway) Convert(ctx context.Context, url string) (*Audio, error) {
	resp, err := g.post(ctx, url, models.ActionConvert)
	if err != nil {
		return nil, &GatewayError{Message: MsgConvertFailed, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp, MsgConvertFailed)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBytes+1))
	if err != nil {
		return nil, &GatewayError{
			Status:  resp.StatusCode,
			Message: MsgConvertFailed,
			Err:     errors.Wrap(err, "reading audio"),
		}
	}
	if int64(len(data)) > g.maxBytes {
		return nil, &GatewayError{
			Status:  resp.StatusCode,
			Message: MsgConvertFailed,
			Err:     errors.Errorf("audio exceeds %d bytes", g.maxBytes),
		}
	}

	return &Audio{
		Filename: filenameFromDisposition(resp.Header.Get("Content-Disposition")),
		Data:     data,
	}, nil
}

func (g *HTTPGateway) post(ctx context.Context, url string, action models.Action) (*http.Response, error) {
	body, err := json.Marshal(models.ConvertRequest{URL: url, Action: action})
	if err != nil {
		return nil, errors.Wrap(err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s request", action)
	}
	return resp, nil
}

// errorFromResponse keeps the server's {"error": "..."} text and falls back
// when the body is not in that shape.
func errorFromResponse(resp *http.Response, fallback string) *GatewayError {
	gerr := &GatewayError{
		Status:  resp.StatusCode,
		Message: fallback,
		Err:     errors.Errorf("gateway returned %s", resp.Status),
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err == nil && body.Error != "" {
		gerr.Message = body.Error
	}
	return gerr
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
