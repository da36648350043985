// Package session tracks one browser's transcription from upload to a
// rendered transcript and runs the background pipeline that drives it.
package session

import (
	"time"

	"github.com/kbukum/transcribe/insights"
	"github.com/kbukum/transcribe/transcription"
)

// Phase is where a session is in its transcription lifecycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseUploading  Phase = "uploading"
	PhaseSubmitting Phase = "submitting"
	PhasePolling    Phase = "polling"
	PhaseReady      Phase = "ready"
	PhaseFailed     Phase = "failed"
)

// Busy reports whether a pipeline owns the session.
func (p Phase) Busy() bool {
	return p == PhaseUploading || p == PhaseSubmitting || p == PhasePolling
}

// Terminal reports whether the session holds a final outcome.
func (p Phase) Terminal() bool {
	return p == PhaseReady || p == PhaseFailed
}

// State is everything the page needs about one session. Result is set only in
// PhaseReady and ErrorMessage only in PhaseFailed.
type State struct {
	ID            string                    `json:"id"`
	Phase         Phase                     `json:"phase"`
	Generation    int64                     `json:"generation"`
	SourceName    string                    `json:"source_name,omitempty"`
	JobID         string                    `json:"job_id,omitempty"`
	JobStatus     transcription.JobStatus   `json:"job_status,omitempty"`
	Result        *transcription.Transcript `json:"result,omitempty"`
	AudioDuration float64                   `json:"audio_duration,omitempty"`
	Insights      *insights.Insights        `json:"insights,omitempty"`
	Summary       string                    `json:"summary,omitempty"`
	ArchivePath   string                    `json:"archive_path,omitempty"`
	ErrorMessage  string                    `json:"error_message,omitempty"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// NewState returns an idle session.
func NewState(id string) State {
	return State{ID: id, Phase: PhaseIdle}
}
