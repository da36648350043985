// Package insights derives per-speaker statistics from a finished
// speaker-separated transcript.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kbukum/transcribe/transcription"
)

// SpeakerShare is one speaker's portion of the total talk time.
type SpeakerShare struct {
	Speaker    string `json:"speaker"`
	DurationMS int64  `json:"duration_ms"`
	Percent    int    `json:"percent"`
}

// SpeakerSentiment is a speaker's most frequent sentiment label. Tied lists
// several labels joined with " and ".
type SpeakerSentiment struct {
	Speaker string `json:"speaker"`
	Overall string `json:"overall"`
	Tied    bool   `json:"tied"`
}

// Insights bundles everything derived from one transcript.
type Insights struct {
	Shares     []SpeakerShare     `json:"shares,omitempty"`
	Sentiments []SpeakerSentiment `json:"sentiments,omitempty"`
}

// Compute returns nil when the transcript is not speaker-separated.
func Compute(t transcription.Transcript, sentiments []transcription.SentimentResult) *Insights {
	if !t.HasSpeakers() {
		return nil
	}
	in := &Insights{
		Shares:     SpeakerShares(t.Utterances()),
		Sentiments: OverallSentiment(sentiments),
	}
	if len(in.Shares) == 0 && len(in.Sentiments) == 0 {
		return nil
	}
	return in
}

// SpeakerShares sums utterance durations per speaker and converts them to
// whole percentages, ordered by speaker label. Zero total duration yields nil.
func SpeakerShares(us []transcription.Utterance) []SpeakerShare {
	totals := make(map[string]int64)
	var sum int64
	for _, u := range us {
		d := u.End - u.Start
		if d < 0 {
			d = 0
		}
		totals[u.Speaker] += d
		sum += d
	}
	if sum == 0 {
		return nil
	}
	out := make([]SpeakerShare, 0, len(totals))
	for speaker, d := range totals {
		out = append(out, SpeakerShare{
			Speaker:    speaker,
			DurationMS: d,
			Percent:    int(math.RoundToEven(float64(d) / float64(sum) * 100)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Speaker < out[j].Speaker })
	return out
}

// OverallSentiment picks each speaker's most frequent sentiment, lowercased.
// Ties keep first-seen order. Results without a speaker are ignored.
func OverallSentiment(results []transcription.SentimentResult) []SpeakerSentiment {
	type tally struct {
		order  []string
		counts map[string]int
	}
	bySpeaker := make(map[string]*tally)
	for _, r := range results {
		if r.Speaker == "" || r.Sentiment == "" {
			continue
		}
		t, ok := bySpeaker[r.Speaker]
		if !ok {
			t = &tally{counts: make(map[string]int)}
			bySpeaker[r.Speaker] = t
		}
		label := strings.ToLower(string(r.Sentiment))
		if t.counts[label] == 0 {
			t.order = append(t.order, label)
		}
		t.counts[label]++
	}

	speakers := make([]string, 0, len(bySpeaker))
	for s := range bySpeaker {
		speakers = append(speakers, s)
	}
	sort.Strings(speakers)

	out := make([]SpeakerSentiment, 0, len(speakers))
	for _, s := range speakers {
		t := bySpeaker[s]
		best := 0
		for _, n := range t.counts {
			best = max(best, n)
		}
		var top []string
		for _, label := range t.order {
			if t.counts[label] == best {
				top = append(top, label)
			}
		}
		out = append(out, SpeakerSentiment{Speaker: s, Overall: strings.Join(top, " and "), Tied: len(top) > 1})
	}
	return out
}

// Lines renders the insights as sentences for display.
func (in *Insights) Lines() []string {
	if in == nil {
		return nil
	}
	var lines []string
	for _, s := range in.Shares {
		lines = append(lines, fmt.Sprintf("Speaker %s spoke for %d%% of the time.", s.Speaker, s.Percent))
	}
	for _, s := range in.Sentiments {
		if s.Tied {
			lines = append(lines, fmt.Sprintf("The overall sentiment for Speaker %s was equally %s.", s.Speaker, s.Overall))
		} else {
			lines = append(lines, fmt.Sprintf("The overall sentiment for Speaker %s was %s.", s.Speaker, s.Overall))
		}
	}
	return lines
}
