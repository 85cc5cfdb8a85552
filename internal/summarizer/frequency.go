// Package summarizer picks the key sentences of a split document.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"pdfrag/internal/domain"
)

// FrequencySummarizer ranks sentences by normalized word frequency with
// stopwords filtered out.
type FrequencySummarizer struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentencePattern: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:       defaultStopwords(),
	}
}

type sentence struct {
	page   int
	text   string
	tokens []string
}

// Summarize returns up to n highlights in document order. Sentences repeated
// across overlapping chunks count once.
func (s *FrequencySummarizer) Summarize(chunks []domain.Chunk, n int) []domain.Highlight {
	if n <= 0 {
		return nil
	}
	sentences := s.sentences(chunks)
	if len(sentences) == 0 {
		return nil
	}

	freq := map[string]float64{}
	maxF := 0.0
	for _, sent := range sentences {
		for _, tok := range sent.tokens {
			if _, ok := s.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
			maxF = max(maxF, freq[tok])
		}
	}

	if maxF == 0 {
		maxF = 1
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		score := 0.0
		for _, tok := range sent.tokens {
			score += freq[tok] / maxF
		}
		// long sentences would otherwise always win
		if l := float64(len(sent.tokens)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	n = min(n, len(scores))
	selected := make([]int, n)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]domain.Highlight, 0, n)
	for _, idx := range selected {
		out = append(out, domain.Highlight{Page: sentences[idx].page, Sentence: sentences[idx].text})
	}
	return out
}

func (s *FrequencySummarizer) sentences(chunks []domain.Chunk) []sentence {
	seen := map[string]struct{}{}
	var out []sentence
	for _, c := range chunks {
		found := s.sentencePattern.FindAllString(c.Content, -1)
		if len(found) == 0 {
			found = []string{c.Content}
		}
		for _, f := range found {
			text := strings.Join(strings.Fields(f), " ")
			if text == "" {
				continue
			}
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			out = append(out, sentence{page: c.Page, text: text, tokens: s.tokens(text)})
		}
	}
	return out
}

func (s *FrequencySummarizer) tokens(text string) []string {
	return s.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "should", "now", "we", "you", "they", "he", "she", "not", "no",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
