package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/melodyforge/internal/shared"
	"github.com/desertthunder/melodyforge/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	QueryView ViewState = iota
	WorkingView
	ResultsView
	MessageView
)

// Engine answers requests. [tasks.Engine] implements it.
type Engine interface {
	Handle(ctx context.Context, req tasks.Request) *tasks.Response
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	engine  Engine
	deliver tasks.DeliverFunc
	userID  int64
	name    string

	width    int
	height   int
	input    textinput.Model
	spinner  spinner.Model
	results  list.Model
	hasList  bool
	progress tasks.ProgressUpdate
	response *tasks.Response
	updates  <-chan tasks.ProgressUpdate
	done     <-chan *tasks.Response
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model. deliver receives every downloaded artifact before it is released.
func NewModel(ctx context.Context, engine Engine, deliver tasks.DeliverFunc, userID int64, name string) *Model {
	input := textinput.New()
	input.Placeholder = "artist - title, or /top /mix /history /artist <name> /mode <basic|extended>"
	input.Prompt = "♪ "
	input.CharLimit = 200
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title.UnsetMarginBottom()

	return &Model{
		ctx:     ctx,
		view:    QueryView,
		engine:  engine,
		deliver: deliver,
		userID:  userID,
		name:    name,
		input:   input,
		spinner: sp,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init greets the user the same way the start command does.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.submit(tasks.Request{Kind: tasks.KindStart}))
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-6, 10)
		if m.hasList {
			m.results.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case QueryView:
			return m.handleQueryKeys(msg)
		case WorkingView:
			if key.Matches(msg, m.keys.abort) {
				return m, tea.Quit
			}
			return m, nil
		case ResultsView:
			return m.handleResultsKeys(msg)
		case MessageView:
			return m.handleMessageKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != WorkingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		if next, ok := m.pending(); ok {
			return m, next
		}
		return m, nil

	case MsgResponse:
		m.applyResponse(msg.data.(*tasks.Response))
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case QueryView:
		return m.renderQuery()
	case WorkingView:
		return m.renderWorking()
	case ResultsView:
		return m.renderResults()
	case MessageView:
		return m.renderMessage()
	default:
		return ""
	}
}

func (m *Model) handleQueryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.abort):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.hasList {
			m.view = ResultsView
		}
		return m, nil
	case key.Matches(msg, m.keys.submit):
		req, err := ParseInput(m.input.Value())
		if err != nil {
			m.response = &tasks.Response{Text: err.Error(), Err: err}
			m.view = MessageView
			return m, nil
		}
		m.input.Reset()
		return m, m.submit(req)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResultsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.results.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = QueryView
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.results.SelectedItem().(actionItem); ok {
			return m, m.submit(tasks.Request{Kind: tasks.KindSelection, Token: item.action.Token})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) handleMessageKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.hasList {
			m.view = ResultsView
			return m, nil
		}
		fallthrough
	case key.Matches(msg, m.keys.enter):
		m.view = QueryView
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case QueryView:
		m.input, cmd = m.input.Update(msg)
	case ResultsView:
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

// applyResponse switches to the results list when the response has rows and to the message view otherwise.
func (m *Model) applyResponse(resp *tasks.Response) {
	m.response = resp
	m.progress = tasks.ProgressUpdate{}
	m.updates = nil

	if len(resp.Rows) == 0 {
		m.view = MessageView
		return
	}

	l := list.New(rowItems(resp.Rows), list.NewDefaultDelegate(), 0, 0)
	l.Title = resp.Text
	l.KeyMap.Quit.SetEnabled(false)
	l.SetShowHelp(false)
	l.SetSize(max(m.width-4, 0), max(m.height-8, 0))
	m.results = l
	m.hasList = true
	m.view = ResultsView
}

// submit runs req on the engine in its own goroutine and returns the command that drains its progress.
func (m *Model) submit(req tasks.Request) tea.Cmd {
	req.UserID = m.userID
	req.DisplayName = m.name
	req.Deliver = m.deliver

	updates := make(chan tasks.ProgressUpdate, 16)
	done := make(chan *tasks.Response, 1)
	req.Progress = updates

	go func() {
		resp := m.engine.Handle(m.ctx, req)
		close(updates)
		done <- resp
	}()

	m.updates = updates
	m.done = done
	m.view = WorkingView
	m.input.Blur()
	return tea.Batch(m.spinner.Tick, waitFor(updates, done))
}

// pending returns the command for the next message of the running request, if any.
func (m *Model) pending() (tea.Cmd, bool) {
	if m.updates == nil {
		return nil, false
	}
	return waitFor(m.updates, m.done), true
}

func waitFor(updates <-chan tasks.ProgressUpdate, done <-chan *tasks.Response) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-updates; ok {
			return progressUpdateMsg(update)
		}
		return responseMsg(<-done)
	}
}

// ParseInput turns a line typed into the query box into a request.
func ParseInput(line string) (tasks.Request, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return tasks.Request{}, fmt.Errorf("%w: type something to search for", shared.ErrInvalidInput)
	}
	if !strings.HasPrefix(line, "/") {
		return tasks.Request{Kind: tasks.KindFreeText, Query: line}, nil
	}

	command, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(command) {
	case "start", "help":
		return tasks.Request{Kind: tasks.KindStart}, nil
	case "top":
		return tasks.Request{Kind: tasks.KindTopChart}, nil
	case "mix":
		return tasks.Request{Kind: tasks.KindMix}, nil
	case "history":
		return tasks.Request{Kind: tasks.KindHistory}, nil
	case "artist":
		if arg == "" {
			return tasks.Request{}, fmt.Errorf("%w: /artist needs a name", shared.ErrMissingArgument)
		}
		return tasks.Request{Kind: tasks.KindArtistTop, Artist: arg}, nil
	case "mode":
		if arg == "" {
			return tasks.Request{}, fmt.Errorf("%w: /mode needs basic or extended", shared.ErrMissingArgument)
		}
		return tasks.Request{Kind: tasks.KindSetMode, Mode: arg}, nil
	default:
		return tasks.Request{}, fmt.Errorf("%w: /%s", shared.ErrUnknownRequest, command)
	}
}

func (m *Model) renderQuery() string {
	title := styles.title.Render("melodyforge")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.submit, m.keys.back, m.keys.abort})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderWorking() string {
	message := m.progress.Message
	if message == "" {
		message = "Working..."
	}
	if m.progress.Total > 0 {
		message = fmt.Sprintf("(%d/%d) %s", m.progress.Step, m.progress.Total, message)
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.abort})
	return fmt.Sprintf("%s %s\n\n%s", m.spinner.View(), message, helpView)
}

func (m *Model) renderResults() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.results.View(), helpView)
}

func (m *Model) renderMessage() string {
	var b strings.Builder
	if m.response == nil {
		b.WriteString(styles.warn.Render("Nothing to show."))
	} else if m.response.Failed() {
		b.WriteString(styles.err.Render(m.response.Text))
		b.WriteString("\n")
		b.WriteString(styles.help.Render(m.response.Err.Error()))
	} else {
		b.WriteString(styles.ok.Render(m.response.Text))
	}

	if m.response != nil && m.response.Promotion != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.promo.Render(m.response.Promotion))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", b.String(), helpView)
}
