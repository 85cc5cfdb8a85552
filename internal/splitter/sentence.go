package splitter

import (
	"regexp"
	"strings"
)

// SentenceWindows splits page text into windows of sentences with overlap.
type SentenceWindows struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceWindows(sentencesPerChunk, overlapSentences int) *SentenceWindows {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	// Overlap must leave room for progress.
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceWindows{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// Windows returns the windows of text in order. Text without sentence
// punctuation comes back as a single window; blank text as none.
func (c *SentenceWindows) Windows(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	var sentences []string
	consumed := 0
	for _, loc := range c.splitter.FindAllStringIndex(trimmed, -1) {
		sentences = append(sentences, trimmed[loc[0]:loc[1]])
		consumed = loc[1]
	}
	// Keep a trailing fragment without terminal punctuation.
	if rest := strings.TrimSpace(trimmed[consumed:]); rest != "" {
		sentences = append(sentences, rest)
	}
	var kept []string
	for _, s := range sentences {
		if s = strings.Join(strings.Fields(s), " "); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	var windows []string
	i := 0
	for i < len(kept) {
		end := min(i+c.sentencesPerChunk, len(kept))
		windows = append(windows, strings.Join(kept[i:end], " "))
		if end == len(kept) {
			break
		}
		i = end - c.overlapSentences
	}
	return windows
}
