package models

import "time"

type Action string

const (
	ActionInfo    Action = "info"
	ActionConvert Action = "convert"
)

// ConvertRequest is the body accepted by the gateway endpoint.
type ConvertRequest struct {
	URL    string `json:"url"`
	Action Action `json:"action"`
}

// VideoInfo is the preview returned by the info action.
type VideoInfo struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  string `json:"duration"`
	Channel   string `json:"channel"`
	VideoID   string `json:"videoId"`
}

// Metadata is what a metadata provider reports before formatting. Duration
// is in seconds and is zero when the provider cannot supply it.
type Metadata struct {
	VideoID   string
	Title     string
	Channel   string
	Duration  float64
	Thumbnail string
}

type ConversionStatus string

const (
	StatusSucceeded ConversionStatus = "succeeded"
	StatusRejected  ConversionStatus = "rejected"
	StatusFailed    ConversionStatus = "failed"
)

// Conversion is one gateway outcome recorded in the history ledger.
type Conversion struct {
	ID        int64            `json:"id"`
	RequestID string           `json:"request_id"`
	VideoID   string           `json:"video_id,omitempty"`
	Action    Action           `json:"action"`
	Status    ConversionStatus `json:"status"`
	Bytes     int64            `json:"bytes"`
	ElapsedMS int64            `json:"elapsed_ms"`
	CreatedAt time.Time        `json:"created_at"`
}
