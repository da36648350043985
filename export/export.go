// Package export renders finished transcripts for the clipboard and for
// downloads. Copy and download share Render so their bytes match.
package export

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/kbukum/transcribe/transcription"
)

const (
	fallbackName = "transcript"
	nameSuffix   = "_transcript"
)

// Render returns speaker lines "Speaker X: text" separated by blank lines, or
// the flat text verbatim.
func Render(t transcription.Transcript) string {
	if !t.HasSpeakers() {
		return t.Text()
	}
	us := t.Utterances()
	lines := make([]string, len(us))
	for i, u := range us {
		lines[i] = SpeakerLine(u)
	}
	return strings.Join(lines, "\n\n")
}

// SpeakerLine formats one utterance.
func SpeakerLine(u transcription.Utterance) string {
	return fmt.Sprintf("Speaker %s: %s", u.Speaker, u.Text)
}

// FileName derives the download name from the uploaded file's name:
// "interview.mp3" becomes "interview_transcript.txt".
func FileName(sourceName string) string {
	return withSuffix(sourceName, ".txt")
}

// MarkdownFileName is FileName with a .md extension.
func MarkdownFileName(sourceName string) string {
	return withSuffix(sourceName, ".md")
}

func withSuffix(sourceName, ext string) string {
	name := baseName(sourceName)
	if name == "" {
		return fallbackName + ext
	}
	return name + nameSuffix + ext
}

func baseName(sourceName string) string {
	// Browsers on Windows may send a full path.
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(sourceName), `\`, "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f, r == '"', r == '/', r == ';':
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// Meta is the header of a Markdown export.
type Meta struct {
	Title     string
	Source    string
	Provider  string
	Duration  time.Duration
	Generated time.Time
	Summary   string
}

// Markdown renders a titled document with an optional summary and, for
// speaker transcripts, timestamped lines.
func Markdown(meta Meta, t transcription.Transcript) string {
	var b strings.Builder
	if meta.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", meta.Title)
	} else {
		b.WriteString("# Transcript\n\n")
	}
	if meta.Source != "" {
		fmt.Fprintf(&b, "- Source: `%s`\n", meta.Source)
	}
	if meta.Provider != "" {
		fmt.Fprintf(&b, "- Provider: `%s`\n", meta.Provider)
	}
	if meta.Duration > 0 {
		fmt.Fprintf(&b, "- Duration: %s\n", meta.Duration.Truncate(time.Second))
	}
	if !meta.Generated.IsZero() {
		fmt.Fprintf(&b, "- Generated: %s\n", meta.Generated.UTC().Format(time.RFC3339))
	}
	if meta.Summary != "" {
		fmt.Fprintf(&b, "\n## Summary\n\n%s\n", strings.TrimSpace(meta.Summary))
	}
	b.WriteString("\n---\n\n")

	if !t.HasSpeakers() {
		b.WriteString(strings.TrimSpace(t.Text()))
		b.WriteString("\n")
		return b.String()
	}
	for _, u := range t.Utterances() {
		ts := ""
		if u.End > 0 {
			ts = fmt.Sprintf("[%s-%s] ", msToTS(u.Start), msToTS(u.End))
		}
		fmt.Fprintf(&b, "%s**Speaker %s:** %s\n\n", ts, u.Speaker, strings.TrimSpace(u.Text))
	}
	return b.String()
}

func msToTS(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
