package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"

	"github.com/lysyi3m/rss-reader/app/reader"
	"github.com/lysyi3m/rss-reader/app/render"
)

// Fetcher is satisfied by *feed.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type fetchResultMsg struct {
	url  string
	body []byte
	err  error
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("236")).Padding(0, 1)
	headingStyle  = lipgloss.NewStyle().Bold(true).MarginTop(1)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	linkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	invalidBorder = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("196"))
	normalBorder  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

// Model drives one reader session in the terminal. Update is the only place
// events reach the controller, so the controller needs no loop of its own.
type Model struct {
	ctx        context.Context
	controller *reader.Controller
	fetcher    Fetcher
	catalog    *render.Catalog
	lang       language.Tag

	input   textinput.Model
	spinner spinner.Model

	// Sections are rebuilt only when their field notifies.
	form     render.FormView
	phase    reader.FormPhase
	errText  string
	feeds    string
	articles string
	added    bool

	width  int
	height int
}

func NewModel(ctx context.Context, controller *reader.Controller, fetcher Fetcher, catalog *render.Catalog, lang language.Tag) *Model {
	input := textinput.New()
	input.Placeholder = catalog.Label("placeholder", lang)
	input.Prompt = "> "
	input.Width = 60
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := &Model{
		ctx:        ctx,
		controller: controller,
		fetcher:    fetcher,
		catalog:    catalog,
		lang:       lang,
		input:      input,
		spinner:    s,
		width:      80,
	}

	store := controller.Store()
	store.SubscribeAll(m.onChange)

	initial := store.Snapshot()
	for _, field := range reader.Fields {
		m.onChange(field, initial)
	}

	return m
}

func (m *Model) onChange(field reader.Field, state reader.State) {
	switch field {
	case reader.FieldFormPhase:
		m.added = m.phase == reader.PhaseWaiting && state.FormPhase == reader.PhaseEmpty
		m.phase = state.FormPhase
		m.form = render.NewFormView(state.FormPhase)
		if m.form.ClearInput {
			m.input.SetValue("")
		}
	case reader.FieldError:
		m.errText = m.catalog.Message(state.Error, m.lang)
	case reader.FieldFeeds:
		m.feeds = m.renderFeeds(state.Feeds)
	case reader.FieldArticles:
		m.articles = m.renderArticles(state.Articles)
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-4, 20)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.dispatch(reader.SubmitClicked{})
		}

		if !m.form.InputEditable {
			return m, nil
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if value := m.input.Value(); value != before {
			m.added = false
			return m, tea.Batch(cmd, m.dispatch(reader.InputChanged{Text: value}))
		}
		return m, cmd

	case fetchResultMsg:
		return m, m.dispatch(reader.ResultEvent(msg.url, msg.body, msg.err))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dispatch reduces ev and turns a fetch request into a command.
func (m *Model) dispatch(ev reader.Event) tea.Cmd {
	req := m.controller.Dispatch(ev)
	if req == nil {
		return nil
	}
	return m.fetch(req.URL)
}

func (m *Model) fetch(url string) tea.Cmd {
	return func() tea.Msg {
		body, err := m.fetcher.Fetch(m.ctx, url)
		return fetchResultMsg{url: url, body: body, err: err}
	}
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.catalog.Label("title", m.lang)))
	b.WriteString("\n\n")

	box := normalBorder
	if m.form.Flagged {
		box = invalidBorder
	}
	b.WriteString(box.Render(m.input.View()))
	b.WriteString("\n")

	switch {
	case m.errText != "":
		b.WriteString(errorStyle.Render(m.errText))
	case m.phase == reader.PhaseWaiting:
		b.WriteString(m.spinner.View() + " " + statusStyle.Render(m.catalog.Label("loading", m.lang)))
	case m.added:
		b.WriteString(statusStyle.Render(m.catalog.Label("added", m.lang)))
	case m.form.SubmitEnabled:
		b.WriteString(mutedStyle.Render("enter: " + m.catalog.Label("submit", m.lang)))
	}
	b.WriteString("\n")

	b.WriteString(m.feeds)
	b.WriteString(m.articles)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("esc: quit"))

	return b.String()
}

func (m *Model) renderFeeds(feeds []reader.Feed) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(m.catalog.Label("feeds", m.lang)))
	b.WriteString("\n")

	if len(feeds) == 0 {
		b.WriteString(mutedStyle.Render(m.catalog.Label("no_feeds", m.lang)))
		b.WriteString("\n")
		return b.String()
	}

	for _, f := range feeds {
		b.WriteString(fmt.Sprintf("• %s\n", f.Title))
		if desc := render.PlainText(f.Description); desc != "" {
			b.WriteString("  " + mutedStyle.Render(truncate(desc, m.width-2)) + "\n")
		}
	}
	return b.String()
}

func (m *Model) renderArticles(articles []reader.Article) string {
	if len(articles) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render(m.catalog.Label("articles", m.lang)))
	b.WriteString("\n")
	for _, a := range articles {
		b.WriteString(fmt.Sprintf("• %s\n  %s\n", a.Title, linkStyle.Render(a.Link)))
	}
	return b.String()
}

func truncate(s string, width int) string {
	if width <= 1 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
