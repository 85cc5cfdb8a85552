package tui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdfrag/internal/domain"
	"pdfrag/internal/ingest"
	"pdfrag/internal/retrieval"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Collection() string
	CreateCollection(ctx context.Context) domain.ProvisionResult
	Ingest(ctx context.Context, path string) (ingest.Report, error)
	Ask(ctx context.Context, question string, limit int) (retrieval.Answer, error)
}

type mode int

const (
	modeMenu mode = iota
	modeIngest
	modeAsk
)

const menuHelp = "1 create collection · 2 import PDF · 3 ask a question · q quit"

// Model is the Bubble Tea model for the menu.
type Model struct {
	ctx       context.Context
	service   RAGPort
	input     textinput.Model
	viewport  viewport.Model
	mode      mode
	answer    *retrieval.Answer
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(ctx context.Context, service RAGPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, service: service, input: ti, viewport: vp, status: "Choose an option."}
}

func (m Model) Init() tea.Cmd { return nil }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 3 + 1 + qh + 1 // header, collection, menu + status + input + spacer
		vh := max(3, msg.Height-reserved)
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.mode == modeMenu {
			return m.updateMenu(msg)
		}
		switch msg.String() {
		case "esc":
			m.toMenu("Choose an option.")
			return m, nil
		case "enter":
			v := strings.TrimSpace(m.input.Value())
			if v == "" {
				return m, nil
			}
			if m.mode == modeIngest {
				m.ingest(v)
			} else {
				m.ask(v)
			}
			return m, nil
		case "down":
			if m.answer != nil && len(m.answer.Records) > 0 {
				m.cursor = (m.cursor + 1) % len(m.answer.Records)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if m.answer != nil && len(m.answer.Records) > 0 {
				n := len(m.answer.Records)
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "1":
		res := m.service.CreateCollection(m.ctx)
		if res.Err != nil {
			m.status = "Collection not created: " + res.Err.Error()
		} else {
			m.status = fmt.Sprintf("Created collection %s", res.Collection)
		}
	case "2":
		m.toInput(modeIngest, "Path to a PDF file")
	case "3":
		m.toInput(modeAsk, "Ask a question about your documents")
	}
	return m, nil
}

func (m *Model) toInput(md mode, placeholder string) {
	m.mode = md
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.Focus()
	m.status = "Enter to submit, Esc to go back."
}

func (m *Model) toMenu(status string) {
	m.mode = modeMenu
	m.input.Reset()
	m.input.Blur()
	m.status = status
}

func (m *Model) ingest(path string) {
	report, err := m.service.Ingest(m.ctx, path)
	if err != nil {
		m.toMenu("Error: " + err.Error())
		return
	}
	m.toMenu(fmt.Sprintf("Imported %d chunks from %s into %s", report.Chunks, path, m.service.Collection()))
	if len(report.Highlights) > 0 {
		m.answer = nil
		m.viewport.SetContent(renderHighlights(report.Highlights))
	}
}

func renderHighlights(hs []domain.Highlight) string {
	var b strings.Builder
	b.WriteString("Key sentences:\n\n")
	for _, h := range hs {
		fmt.Fprintf(&b, "p.%d  %s\n", h.Page, h.Sentence)
	}
	return b.String()
}

func (m *Model) ask(q string) {
	ans, err := m.service.Ask(m.ctx, q, 0)
	var qe *domain.QueryError
	switch {
	case errors.As(err, &qe):
		m.status = "Query error: " + strings.Join(qe.Messages, "; ")
		m.answer = nil
	case err != nil:
		m.status = "Error: " + err.Error()
		m.answer = nil
	default:
		m.status = fmt.Sprintf("Answer for %q (↑/↓ browse sources)", q)
		m.answer = &ans
		m.cursor = 0
		m.lastQuery = q
		m.input.Reset()
	}
	m.viewport.SetContent(m.renderCurrentResult())
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("PDF RAG")
	collection := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("collection: " + m.service.Collection())
	menu := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(menuHelp)
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	out := header + "\n" + collection + "\n" + menu + "\n" + results + "\n"
	if m.mode != modeMenu {
		out += queryBoxStyle.Render(m.input.View()) + "\n"
	}
	return out + status
}

func (m Model) renderCurrentResult() string {
	if m.answer == nil {
		return "No answer yet."
	}
	out := m.answer.Text
	if len(m.answer.Records) == 0 {
		return out
	}
	r := m.answer.Records[m.cursor]
	title := fmt.Sprintf("Source %d/%d  page %d of %s", m.cursor+1, len(m.answer.Records), r.Page, r.Source)
	return out + "\n\n" + title + "\n\n" + highlightBestSentence(r.Content, m.lastQuery)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence marks the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

// Run starts the menu and blocks until the user quits.
func Run(ctx context.Context, service RAGPort) error {
	_, err := tea.NewProgram(New(ctx, service), tea.WithAltScreen()).Run()
	return err
}
