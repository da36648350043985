package insights

import (
	"reflect"
	"testing"

	"github.com/kbukum/transcribe/transcription"
)

func TestSpeakerShares(t *testing.T) {
	us := []transcription.Utterance{
		{Speaker: "B", Start: 0, End: 1000},
		{Speaker: "A", Start: 1000, End: 4000},
		{Speaker: "B", Start: 4000, End: 5000},
	}
	got := SpeakerShares(us)
	want := []SpeakerShare{
		{Speaker: "A", DurationMS: 3000, Percent: 60},
		{Speaker: "B", DurationMS: 2000, Percent: 40},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SpeakerShares = %+v, want %+v", got, want)
	}

	if SpeakerShares([]transcription.Utterance{{Speaker: "A"}}) != nil {
		t.Error("zero total duration should yield nil")
	}
}

func TestOverallSentiment(t *testing.T) {
	rs := []transcription.SentimentResult{
		{Speaker: "B", Sentiment: transcription.SentimentNegative},
		{Speaker: "A", Sentiment: transcription.SentimentPositive},
		{Speaker: "A", Sentiment: transcription.SentimentNeutral},
		{Speaker: "A", Sentiment: transcription.SentimentPositive},
		{Speaker: "B", Sentiment: transcription.SentimentPositive},
		{Sentiment: transcription.SentimentPositive},
	}
	got := OverallSentiment(rs)
	want := []SpeakerSentiment{
		{Speaker: "A", Overall: "positive"},
		{Speaker: "B", Overall: "negative and positive", Tied: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("OverallSentiment = %+v, want %+v", got, want)
	}
}

func TestCompute(t *testing.T) {
	if Compute(transcription.NewTextTranscript("x"), nil) != nil {
		t.Error("flat text has no insights")
	}
	tr := transcription.NewSpeakerTranscript([]transcription.Utterance{
		{Speaker: "A", Text: "hi", Start: 0, End: 500},
	})
	in := Compute(tr, []transcription.SentimentResult{{Speaker: "A", Sentiment: transcription.SentimentNeutral}})
	lines := in.Lines()
	want := []string{
		"Speaker A spoke for 100% of the time.",
		"The overall sentiment for Speaker A was neutral.",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("Lines = %q", lines)
	}

	tied := &Insights{Sentiments: []SpeakerSentiment{{Speaker: "B", Overall: "negative and positive", Tied: true}}}
	if tied.Lines()[0] != "The overall sentiment for Speaker B was equally negative and positive." {
		t.Errorf("unexpected tied line %q", tied.Lines()[0])
	}
	var nilInsights *Insights
	if nilInsights.Lines() != nil {
		t.Error("nil insights should render nothing")
	}
}
