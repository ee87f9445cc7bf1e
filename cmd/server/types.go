package main

import (
	"fmt"
	"time"
)

const (
	// MaxUploadBytes bounds the multipart body of POST /api/align.
	MaxUploadBytes = 100 << 20

	// MaxAlignDuration is the longest alignment a client may request.
	MaxAlignDuration = 60 * time.Second
)

// AlignRequest holds the non-file fields of POST /api/align.
type AlignRequest struct {
	// Duration is optional, in seconds. Zero means the configured default.
	Duration float64
}

// Validate checks if the request is valid
func (r *AlignRequest) Validate() error {
	if r.Duration < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	if time.Duration(r.Duration*float64(time.Second)) > MaxAlignDuration {
		return fmt.Errorf("duration too long: %.1fs (maximum: %v)", r.Duration, MaxAlignDuration)
	}
	return nil
}

// AlignResponse is the response for POST /api/align
type AlignResponse struct {
	OffsetSeconds float64 `json:"offset_seconds"`
	OffsetSamples float64 `json:"offset_samples"`
	SampleRate    int     `json:"sample_rate"`
	Valid         bool    `json:"valid"`
	Peak          float64 `json:"peak"`
	ThresholdUp   float64 `json:"threshold_up"`
	Duration      float64 `json:"duration"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
