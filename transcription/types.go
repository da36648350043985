package transcription

import (
	"encoding/json"
	"fmt"
)

// JobStatus is the provider-side state of a transcription job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// Terminal reports whether no further status changes will happen.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Job is a submitted transcription request.
type Job struct {
	ID       string    `json:"id"`
	Status   JobStatus `json:"status"`
	AudioURL string    `json:"audio_url,omitempty"`
}

// Utterance is one contiguous span of speech by one speaker. Start and End
// are milliseconds from the beginning of the audio.
type Utterance struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Ordinal    int     `json:"ordinal"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Kind names the populated side of a Transcript.
type Kind string

const (
	KindText     Kind = "text"
	KindSpeakers Kind = "speakers"
)

// Transcript is either flat text or an ordered list of utterances, never both.
// The zero value is empty and carries neither.
type Transcript struct {
	kind       Kind
	text       string
	utterances []Utterance
}

// NewTextTranscript builds a flat-text transcript.
func NewTextTranscript(text string) Transcript {
	return Transcript{kind: KindText, text: text}
}

// NewSpeakerTranscript builds a speaker-separated transcript. Ordinals are
// reassigned from slice position.
func NewSpeakerTranscript(utterances []Utterance) Transcript {
	us := make([]Utterance, len(utterances))
	copy(us, utterances)
	for i := range us {
		us[i].Ordinal = i
	}
	return Transcript{kind: KindSpeakers, utterances: us}
}

func (t Transcript) Kind() Kind { return t.kind }

// Text returns the flat text; empty for speaker transcripts.
func (t Transcript) Text() string { return t.text }

// Utterances returns a copy of the utterance list; nil for text transcripts.
func (t Transcript) Utterances() []Utterance {
	if t.kind != KindSpeakers {
		return nil
	}
	us := make([]Utterance, len(t.utterances))
	copy(us, t.utterances)
	return us
}

// HasSpeakers reports whether the transcript is speaker-separated.
func (t Transcript) HasSpeakers() bool { return t.kind == KindSpeakers }

// IsEmpty reports whether there is nothing to show.
func (t Transcript) IsEmpty() bool {
	switch t.kind {
	case KindText:
		return t.text == ""
	case KindSpeakers:
		return len(t.utterances) == 0
	default:
		return true
	}
}

// PlainText concatenates utterance texts with spaces, or returns the flat text.
// It is what gets summarized.
func (t Transcript) PlainText() string {
	if t.kind != KindSpeakers {
		return t.text
	}
	var out []byte
	for i, u := range t.utterances {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, u.Text...)
	}
	return string(out)
}

type transcriptJSON struct {
	Kind       Kind        `json:"kind"`
	Text       *string     `json:"text,omitempty"`
	Utterances []Utterance `json:"utterances,omitempty"`
}

func (t Transcript) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case KindText:
		text := t.text
		return json.Marshal(transcriptJSON{Kind: KindText, Text: &text})
	case KindSpeakers:
		us := t.utterances
		if us == nil {
			us = []Utterance{}
		}
		return json.Marshal(struct {
			Kind       Kind        `json:"kind"`
			Utterances []Utterance `json:"utterances"`
		}{KindSpeakers, us})
	default:
		return nil, fmt.Errorf("transcript: cannot encode empty transcript")
	}
}

func (t *Transcript) UnmarshalJSON(data []byte) error {
	var raw transcriptJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	hasText := raw.Text != nil
	hasUtterances := raw.Utterances != nil
	if hasText == hasUtterances {
		return fmt.Errorf("transcript: exactly one of text or utterances must be set")
	}
	switch {
	case raw.Kind == KindText && hasText:
		*t = NewTextTranscript(*raw.Text)
	case raw.Kind == KindSpeakers && hasUtterances:
		*t = NewSpeakerTranscript(raw.Utterances)
	default:
		return fmt.Errorf("transcript: kind %q does not match payload", raw.Kind)
	}
	return nil
}

// SubmitRequest asks a provider to transcribe previously uploaded audio.
type SubmitRequest struct {
	AudioURL          string `json:"audio_url" validate:"required,url"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	SentimentAnalysis bool   `json:"sentiment_analysis,omitempty"`
	LanguageCode      string `json:"language_code,omitempty"`
}

// Sentiment is a provider-assigned label.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// SentimentResult scores one sentence.
type SentimentResult struct {
	Speaker    string    `json:"speaker,omitempty"`
	Text       string    `json:"text"`
	Sentiment  Sentiment `json:"sentiment"`
	Start      int64     `json:"start"`
	End        int64     `json:"end"`
	Confidence float64   `json:"confidence,omitempty"`
}

// StatusReport is one answer to a status query. Transcript is set only when
// Status is completed; ErrorMessage only when it is error.
type StatusReport struct {
	JobID         string
	Status        JobStatus
	Transcript    Transcript
	ErrorMessage  string
	Sentiments    []SentimentResult
	AudioDuration float64
}
