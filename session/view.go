package session

import (
	"github.com/kbukum/transcribe/export"
)

// View is the derived, display-ready form of a State. Lines and Text are
// mutually exclusive: a speaker transcript fills Lines, a flat one fills Text.
type View struct {
	Phase     Phase    `json:"phase"`
	Busy      bool     `json:"busy"`
	Lines     []string `json:"lines,omitempty"`
	Text      string   `json:"text,omitempty"`
	Insights  []string `json:"insights,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Error     string   `json:"error,omitempty"`
	FileName  string   `json:"file_name,omitempty"`
	CanExport bool     `json:"can_export"`
}

// NewView derives the view for st.
func NewView(st State) View {
	v := View{
		Phase: st.Phase,
		Busy:  st.Phase.Busy(),
	}
	switch st.Phase {
	case PhaseFailed:
		v.Error = st.ErrorMessage
	case PhaseReady:
		if st.Result == nil {
			break
		}
		if st.Result.HasSpeakers() {
			for _, u := range st.Result.Utterances() {
				v.Lines = append(v.Lines, export.SpeakerLine(u))
			}
		} else {
			v.Text = st.Result.Text()
		}
		v.Insights = st.Insights.Lines()
		v.Summary = st.Summary
		v.FileName = export.FileName(st.SourceName)
		v.CanExport = true
	}
	return v
}

// Snapshot pairs a state with its view. It is what handlers return and what
// the event stream carries.
type Snapshot struct {
	State State `json:"state"`
	View  View  `json:"view"`
}

func NewSnapshot(st State) Snapshot {
	return Snapshot{State: st, View: NewView(st)}
}
