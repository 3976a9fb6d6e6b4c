// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"io"
	"time"
)

// SelectedFile describes the PDF the user picked, before it is opened for upload.
type SelectedFile struct {
	// Path is the local filesystem path of the file.
	Path string `json:"path" yaml:"path"`

	// Name is the base name sent as the multipart filename.
	Name string `json:"name" yaml:"name"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// IsZero reports whether no file has been selected.
func (f SelectedFile) IsZero() bool {
	return f.Name == "" && f.Path == ""
}

// UploadRequest is one file + email pair ready to be sent. It is consumed
// exactly once: File is read to EOF by the upload.
type UploadRequest struct {
	FileName string
	FileSize int64
	File     io.Reader
	Email    string
}

// Receipt is the conversion service's acknowledgement of a successful upload.
type Receipt struct {
	// Message is the human-readable acknowledgement (e.g. "Upload complete. Processing started.").
	Message string `json:"message" yaml:"message"`

	// Status is the server-side job state, typically "queued".
	Status string `json:"status,omitempty" yaml:"status,omitempty"`

	// Filename echoes the uploaded file name.
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
}

// FailureKind classifies why an upload attempt failed.
type FailureKind string

const (
	FailureNetwork  FailureKind = "network"
	FailureTimeout  FailureKind = "timeout"
	FailureServer   FailureKind = "server"
	FailureParse    FailureKind = "parse"
	FailureCanceled FailureKind = "canceled"

	// FailureFile means the selected file no longer matched the size it
	// had when it was admitted.
	FailureFile FailureKind = "file"
)

// Failure is the terminal error state of an upload attempt.
type Failure struct {
	Kind FailureKind `json:"kind" yaml:"kind"`

	// StatusCode is the HTTP status for server failures, zero otherwise.
	StatusCode int `json:"status_code,omitempty" yaml:"status_code,omitempty"`

	// Message is shown to the user verbatim.
	Message string `json:"message" yaml:"message"`
}

func (f *Failure) Error() string {
	return f.Message
}

// Outcome is the terminal result of one upload attempt: exactly one of
// Receipt or Failure is set.
type Outcome struct {
	// ID identifies the attempt; it is sent to the server as X-Request-ID.
	ID string `json:"id" yaml:"id"`

	Receipt *Receipt `json:"receipt,omitempty" yaml:"receipt,omitempty"`
	Failure *Failure `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Succeeded reports whether the server acknowledged the upload.
func (o Outcome) Succeeded() bool {
	return o.Failure == nil && o.Receipt != nil
}

// Submission is one recorded upload attempt in the local history journal.
type Submission struct {
	ID         string      `json:"id" yaml:"id"`
	FileName   string      `json:"file_name" yaml:"file_name"`
	FileSize   int64       `json:"file_size" yaml:"file_size"`
	Email      string      `json:"email" yaml:"email"`
	StartedAt  time.Time   `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time   `json:"finished_at" yaml:"finished_at"`
	Succeeded  bool        `json:"succeeded" yaml:"succeeded"`
	Kind       FailureKind `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
	StatusCode int         `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Message    string      `json:"message" yaml:"message"`
}

// Duration returns how long the attempt took.
func (s Submission) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
