// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session holds the view state of one conversion session as an
// immutable snapshot. Every change goes through Reduce, a pure function of
// the current snapshot and an event.
package session

import (
	"github.com/pdiddy/sonifyreads/internal/admission"
	"github.com/pdiddy/sonifyreads/internal/upload"
	"github.com/pdiddy/sonifyreads/pkg/types"
)

// Phase is where the session is in the submit lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingEmail
	PhaseSending
	PhaseAwaitingAck
	PhaseSucceeded
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:          "idle",
	PhaseAwaitingEmail: "awaiting-email",
	PhaseSending:       "sending",
	PhaseAwaitingAck:   "awaiting-ack",
	PhaseSucceeded:     "succeeded",
	PhaseFailed:        "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// MsgNoFile is shown when conversion is requested before a file is chosen.
const MsgNoFile = "Please select a PDF file first"

// State is one snapshot of the session. The zero value is an idle session
// with nothing selected.
type State struct {
	File  types.SelectedFile
	Email string
	Phase Phase

	// Progress is the upload percentage of the current attempt.
	Progress int

	// Error is the file or upload error shown to the user.
	Error string

	// EmailError is the admission error for the entered address.
	EmailError string

	// Receipt is set once the server has acknowledged the upload.
	Receipt *types.Receipt

	// Failure is set when the last attempt failed.
	Failure *types.Failure

	// Attempt counts submissions in this session; each starts fresh.
	Attempt int

	// MaxFileSize overrides the file gate limit; zero uses the default.
	MaxFileSize int64
}

// Busy reports whether an upload is in flight. Input events are ignored
// while busy so a submission cannot be started twice.
func (s State) Busy() bool {
	return s.Phase == PhaseSending || s.Phase == PhaseAwaitingAck
}

// Terminal reports whether the last attempt has ended.
func (s State) Terminal() bool {
	return s.Phase == PhaseSucceeded || s.Phase == PhaseFailed
}

// HasFile reports whether a valid file is selected.
func (s State) HasFile() bool {
	return !s.File.IsZero()
}

func (s State) fileLimit() int64 {
	if s.MaxFileSize > 0 {
		return s.MaxFileSize
	}
	return types.MaxFileSize
}

// Event is something that happened to the session: user input or an
// upload notification.
type Event interface {
	event()
}

type (
	// FileSelected is the user picking a file.
	FileSelected struct{ File types.SelectedFile }
	// FileCleared is the user removing the selected file.
	FileCleared struct{}
	// ConvertRequested is the user asking to convert the selected file.
	ConvertRequested struct{}
	// EmailEntered is the user typing an address.
	EmailEntered struct{ Email string }
	// EmailSubmitted is the user confirming the address; it starts the upload.
	EmailSubmitted struct{}
	// Dismissed closes the email prompt without submitting.
	Dismissed struct{}
	// Progressed is an upload progress tick.
	Progressed struct{ Percent int }
	// Succeeded is the server acknowledging the upload.
	Succeeded struct{ Receipt types.Receipt }
	// Failed is the attempt ending in a failure.
	Failed struct{ Failure types.Failure }
	// Reset returns to an idle session, keeping the entered email.
	Reset struct{}
)

func (FileSelected) event()     {}
func (FileCleared) event()      {}
func (ConvertRequested) event() {}
func (EmailEntered) event()     {}
func (EmailSubmitted) event()   {}
func (Dismissed) event()        {}
func (Progressed) event()       {}
func (Succeeded) event()        {}
func (Failed) event()           {}
func (Reset) event()            {}

// Reduce returns the snapshot that follows s after e. It never mutates s.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case FileSelected:
		if s.Busy() {
			return s
		}
		next := idle(s)
		if err := admission.CheckFile(ev.File.Name, ev.File.Size, s.fileLimit()); err != nil {
			next.Error = err.Error()
			return next
		}
		next.File = ev.File
		return next

	case FileCleared:
		if s.Busy() {
			return s
		}
		return idle(s)

	case ConvertRequested:
		if s.Busy() {
			return s
		}
		if !s.HasFile() {
			s.Error = MsgNoFile
			return s
		}
		s.Phase = PhaseAwaitingEmail
		s.Error = ""
		s.EmailError = ""
		return s

	case EmailEntered:
		if s.Busy() {
			return s
		}
		s.Email = ev.Email
		s.EmailError = ""
		return s

	case EmailSubmitted:
		if s.Phase != PhaseAwaitingEmail {
			return s
		}
		if err := admission.CheckEmail(s.Email); err != nil {
			s.EmailError = err.Error()
			return s
		}
		s.Phase = PhaseSending
		s.Progress = 0
		s.Error = ""
		s.EmailError = ""
		s.Receipt = nil
		s.Failure = nil
		s.Attempt++
		return s

	case Dismissed:
		if s.Phase != PhaseAwaitingEmail {
			return s
		}
		s.Phase = PhaseIdle
		s.EmailError = ""
		return s

	case Progressed:
		if !s.Busy() {
			return s
		}
		p := min(ev.Percent, upload.AckThreshold)
		if p > s.Progress {
			s.Progress = p
		}
		if s.Progress >= upload.AckThreshold {
			s.Phase = PhaseAwaitingAck
		}
		return s

	case Succeeded:
		if !s.Busy() {
			return s
		}
		r := ev.Receipt
		s.Phase = PhaseSucceeded
		s.Progress = 100
		s.Receipt = &r
		return s

	case Failed:
		if !s.Busy() {
			return s
		}
		f := ev.Failure
		s.Phase = PhaseFailed
		s.Failure = &f
		s.Error = f.Message
		return s

	case Reset:
		if s.Busy() {
			return s
		}
		return idle(s)
	}
	return s
}

// Apply folds a sequence of events over s.
func Apply(s State, events ...Event) State {
	for _, e := range events {
		s = Reduce(s, e)
	}
	return s
}

// FromOutcome converts an upload outcome into its terminal event.
func FromOutcome(o types.Outcome) Event {
	if o.Succeeded() {
		return Succeeded{Receipt: *o.Receipt}
	}
	if o.Failure != nil {
		return Failed{Failure: *o.Failure}
	}
	return Failed{Failure: types.Failure{Kind: types.FailureParse, Message: upload.MsgParse}}
}

// idle clears everything tied to a selected file and prior attempt.
func idle(s State) State {
	return State{Email: s.Email, Attempt: s.Attempt, MaxFileSize: s.MaxFileSize}
}
