package session

import (
	"reflect"
	"testing"

	"github.com/kbukum/transcribe/insights"
	"github.com/kbukum/transcribe/transcription"
)

func TestNewView_Speakers(t *testing.T) {
	tr := transcription.NewSpeakerTranscript([]transcription.Utterance{
		{Speaker: "A", Text: "Hi. This is a test."},
	})
	st := State{
		ID:         "s1",
		Phase:      PhaseReady,
		SourceName: "meeting.m4a",
		Result:     &tr,
		Insights:   &insights.Insights{Shares: []insights.SpeakerShare{{Speaker: "A", DurationMS: 1000, Percent: 100}}},
	}

	v := NewView(st)
	if want := []string{"Speaker A: Hi. This is a test."}; !reflect.DeepEqual(v.Lines, want) {
		t.Errorf("Lines = %q", v.Lines)
	}
	if v.Text != "" {
		t.Errorf("Text = %q, want empty for a speaker transcript", v.Text)
	}
	if v.FileName != "meeting_transcript.txt" || !v.CanExport || v.Busy {
		t.Errorf("view = %+v", v)
	}
	if len(v.Insights) != 1 || v.Insights[0] != "Speaker A spoke for 100% of the time." {
		t.Errorf("Insights = %q", v.Insights)
	}
}

func TestNewView_FlatText(t *testing.T) {
	tr := transcription.NewTextTranscript("plain words")
	v := NewView(State{Phase: PhaseReady, Result: &tr})
	if v.Text != "plain words" || v.Lines != nil {
		t.Errorf("view = %+v", v)
	}
	if v.FileName != "transcript.txt" {
		t.Errorf("FileName = %q", v.FileName)
	}
}

func TestNewView_OtherPhases(t *testing.T) {
	v := NewView(State{Phase: PhaseFailed, ErrorMessage: "boom"})
	if v.Error != "boom" || v.CanExport || v.Lines != nil || v.Text != "" {
		t.Errorf("failed view = %+v", v)
	}
	for _, p := range []Phase{PhaseUploading, PhaseSubmitting, PhasePolling} {
		if v := NewView(State{Phase: p}); !v.Busy || v.CanExport {
			t.Errorf("%s view = %+v", p, v)
		}
	}
	if v := NewView(NewState("x")); v.Busy || v.CanExport {
		t.Errorf("idle view = %+v", v)
	}
}
