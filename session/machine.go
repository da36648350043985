package session

import (
	"fmt"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/insights"
	"github.com/kbukum/transcribe/transcription"
)

// transitions lists the phases reachable from each phase, excluding Reset
// which is allowed from everywhere.
var transitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseUploading},
	PhaseUploading:  {PhaseSubmitting, PhaseFailed},
	PhaseSubmitting: {PhasePolling, PhaseFailed},
	PhasePolling:    {PhaseReady, PhaseFailed},
	PhaseReady:      nil,
	PhaseFailed:     nil,
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Phase) bool {
	if to == PhaseIdle {
		return true
	}
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Machine applies transitions to a State. It is not safe for concurrent use;
// the Service serializes access per session.
type Machine struct {
	state State
	now   func() time.Time
}

// NewMachine wraps a copy of st.
func NewMachine(st State, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	if st.Phase == "" {
		st.Phase = PhaseIdle
	}
	return &Machine{state: st, now: now}
}

// State returns a copy of the current state.
func (m *Machine) State() State { return m.state }

func (m *Machine) Phase() Phase { return m.state.Phase }

func (m *Machine) move(to Phase) error {
	from := m.state.Phase
	if !CanTransition(from, to) {
		return errors.Conflict(fmt.Sprintf("cannot move from %s to %s", from, to)).
			WithDetail("from", string(from)).
			WithDetail("to", string(to))
	}
	m.state.Phase = to
	m.state.UpdatedAt = m.now()
	return nil
}

// Begin starts a new submission for sourceName and returns its generation.
// The session must be idle.
func (m *Machine) Begin(sourceName string) (int64, error) {
	if err := m.move(PhaseUploading); err != nil {
		return 0, err
	}
	m.state.Generation++
	m.state.SourceName = sourceName
	return m.state.Generation, nil
}

// Uploaded records that the audio reached the provider.
func (m *Machine) Uploaded() error {
	return m.move(PhaseSubmitting)
}

// Submitted records the provider job id.
func (m *Machine) Submitted(job *transcription.Job) error {
	if err := m.move(PhasePolling); err != nil {
		return err
	}
	m.state.JobID = job.ID
	m.state.JobStatus = job.Status
	return nil
}

// Progress records a non-terminal job status. It reports whether anything
// changed.
func (m *Machine) Progress(status transcription.JobStatus) (bool, error) {
	if m.state.Phase != PhasePolling {
		return false, errors.Conflict(fmt.Sprintf("no job is being polled in phase %s", m.state.Phase))
	}
	if m.state.JobStatus == status {
		return false, nil
	}
	m.state.JobStatus = status
	m.state.UpdatedAt = m.now()
	return true, nil
}

// Complete stores a finished transcript. An empty transcript is rejected so a
// ready session always has something to show.
func (m *Machine) Complete(report *transcription.StatusReport, in *insights.Insights) error {
	if report == nil || report.Transcript.IsEmpty() {
		return errors.ProviderFailed(m.state.JobID, "empty transcript")
	}
	if err := m.move(PhaseReady); err != nil {
		return err
	}
	t := report.Transcript
	m.state.Result = &t
	m.state.JobStatus = transcription.StatusCompleted
	m.state.AudioDuration = report.AudioDuration
	m.state.Insights = in
	m.state.ErrorMessage = ""
	return nil
}

// Fail records a user-facing error message and drops any partial result.
func (m *Machine) Fail(message string) error {
	if err := m.move(PhaseFailed); err != nil {
		return err
	}
	if message == "" {
		message = "Transcription failed."
	}
	m.state.ErrorMessage = message
	m.state.Result = nil
	m.state.Insights = nil
	m.state.Summary = ""
	return nil
}

// Reset returns to idle and clears everything but the id. The generation
// advances so writes from an abandoned pipeline are rejected.
func (m *Machine) Reset() {
	m.state = State{
		ID:         m.state.ID,
		Phase:      PhaseIdle,
		Generation: m.state.Generation + 1,
		UpdatedAt:  m.now(),
	}
}

// SetSummary attaches a summary to a ready session.
func (m *Machine) SetSummary(summary string) error {
	if m.state.Phase != PhaseReady {
		return errors.NothingToExport("summarize")
	}
	m.state.Summary = summary
	m.state.UpdatedAt = m.now()
	return nil
}

// SetArchivePath records where the ready transcript was stored.
func (m *Machine) SetArchivePath(path string) error {
	if m.state.Phase != PhaseReady {
		return errors.Conflict(fmt.Sprintf("cannot archive in phase %s", m.state.Phase))
	}
	m.state.ArchivePath = path
	return nil
}
