// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

const (
	// DefaultTimeout is the ceiling for one upload attempt, covering both the
	// request body transfer and the server acknowledgement.
	DefaultTimeout = 5 * time.Minute

	// MaxFileSize is the largest PDF accepted for conversion (50 MiB).
	MaxFileSize int64 = 50 * 1024 * 1024

	// ConvertPath is the conversion endpoint path appended to the API base URL.
	ConvertPath = "/convert-pdf-to-audio/"

	// DefaultUserAgent identifies the client to the conversion service.
	DefaultUserAgent = "sonify/0.1"
)

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the ceiling for one request, body transfer included.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// UploadConfig holds settings for submitting PDFs to the conversion service.
type UploadConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIURL is the base URL of the conversion service (e.g. "https://api.example.com").
	// The conversion endpoint path is appended to it.
	APIURL string `json:"api_url" yaml:"api_url"`

	// APIToken is an optional bearer token sent with every upload.
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty"`

	// MaxFileSize is the largest accepted PDF in bytes (default 50 MiB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`
}

// HistoryConfig controls the local submission journal.
type HistoryConfig struct {
	// Enabled turns on recording of submission attempts. Off by default.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the directory holding history.db.
	Dir string `json:"dir" yaml:"dir"`
}

// ClientConfig groups all client settings.
type ClientConfig struct {
	Upload  UploadConfig  `json:"upload" yaml:"upload"`
	History HistoryConfig `json:"history" yaml:"history"`
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c UploadConfig) WithDefaults() UploadConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = MaxFileSize
	}
	return c
}
