// Package splitter turns PDF documents into page-tagged chunks.
//
// Text extraction shells out to poppler's pdftotext, which separates pages
// with a form feed. Page numbers on the produced chunks are 1-based.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
)

const pdfToText = "pdftotext"

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH; " + InstallInstructions())

// Strategies accepted by Options.Strategy.
const (
	StrategyPage     = "page"
	StrategySentence = "sentence"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// InstallInstructions describes how to get pdftotext.
func InstallInstructions() string {
	return "install pdftotext from poppler (macOS: brew install poppler, Debian/Ubuntu: apt install poppler-utils)"
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(pdfToText); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// Options configures a PDFSplitter. The zero value splits one chunk per
// page, capped at DefaultMaxChars.
type Options struct {
	Strategy          string
	SentencesPerChunk int
	OverlapSentences  int

	// MaxChars caps chunk length; 0 means DefaultMaxChars and a negative
	// value disables the cap. OverlapChars must be smaller than the cap.
	MaxChars     int
	OverlapChars int
	// Runner replaces the real pdftotext invocation, mostly for tests.
	Runner CommandRunner
	Logger *zap.Logger
}

// PDFSplitter implements domain.Splitter for PDF files.
type PDFSplitter struct {
	runner  CommandRunner
	windows *SentenceWindows
	chars   CharWindows
	logger  *zap.Logger
}

// New validates opts and builds a splitter. Without a Runner it calls the
// pdftotext binary found in PATH.
func New(opts Options) (*PDFSplitter, error) {
	s := &PDFSplitter{runner: opts.Runner, logger: opts.Logger}
	switch {
	case opts.MaxChars == 0:
		s.chars = CharWindows{Max: DefaultMaxChars, Overlap: opts.OverlapChars}
	case opts.MaxChars > 0:
		s.chars = CharWindows{Max: opts.MaxChars, Overlap: opts.OverlapChars}
	}
	if s.chars.Overlap < 0 {
		s.chars.Overlap = 0
	}
	if s.chars.Max > 0 && s.chars.Overlap >= s.chars.Max {
		return nil, fmt.Errorf("overlap of %d characters does not fit chunks of %d", s.chars.Overlap, s.chars.Max)
	}
	switch opts.Strategy {
	case StrategyPage, "":
	case StrategySentence:
		s.windows = NewSentenceWindows(opts.SentencesPerChunk, opts.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown split strategy %q", opts.Strategy)
	}
	if s.runner == nil {
		s.runner = execRunner{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// Split extracts the document's pages and returns its chunks in page order.
func (s *PDFSplitter) Split(ctx context.Context, path string) ([]domain.Chunk, error) {
	if err := checkReadable(path); err != nil {
		return nil, err
	}
	if _, ok := s.runner.(execRunner); ok {
		if err := CheckAvailable(); err != nil {
			return nil, err
		}
	}
	out, err := s.runner.Run(ctx, pdfToText, "-enc", "UTF-8", path, "-")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("pdftotext failed for %s: %s", path, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("pdftotext failed for %s: %w", path, err)
	}

	pages := SplitPages(string(out))
	var chunks []domain.Chunk
	for i, text := range pages {
		for _, piece := range s.pieces(text) {
			chunks = append(chunks, domain.Chunk{Source: path, Page: i + 1, Content: piece})
		}
	}
	s.logger.Debug("split document", zap.String("source", path), zap.Int("pages", len(pages)), zap.Int("chunks", len(chunks)))
	return chunks, nil
}

func (s *PDFSplitter) pieces(text string) []string {
	if s.windows == nil {
		return s.chars.Windows(text)
	}
	var out []string
	for _, w := range s.windows.Windows(text) {
		out = append(out, s.chars.Windows(w)...)
	}
	return out
}

// SplitPages splits pdftotext output on form feeds. The trailing form feed
// pdftotext writes after the last page does not start a new page.
func SplitPages(text string) []string {
	text = strings.TrimSuffix(text, "\f")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.Split(text, "\f")
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory: %w", path, domain.ErrNotFound)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", path, domain.ErrNotFound)
	}
	return f.Close()
}
