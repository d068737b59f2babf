// Package tui is the interactive shell: a login screen, the task list with
// keyboard and mouse-drag reorder, and the create/edit form.
//
// All state changes happen in Update. Network calls run inside tea.Cmds and
// report back as messages tagged with the session generation; results from an
// earlier session (before a logout) are dropped.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskman/internal/logging"
	"taskman/internal/service"
	"taskman/internal/session"
	"taskman/internal/taskview"
)

type screen int

const (
	screenLogin screen = iota
	screenTasks
	screenForm
	screenConfirm
)

// Form input order; focus index len(inputs) is the status selector.
const (
	inputTitle = iota
	inputDesc
	inputDue
	inputCategory
	numInputs
)

// listTop is the screen row of the first task in the task view.
const listTop = 2

// errExternalLogin is shown when the backend signs in outside the terminal UI.
var errExternalLogin = errors.New("not logged in (run: taskman login)")

// ConnectFunc creates a Service bound to a session token.
type ConnectFunc func(ctx context.Context, token string) (service.Service, error)

// Options configures a Model.
type Options struct {
	Session *session.State
	Connect ConnectFunc
	Log     *slog.Logger

	// Copy writes to the system clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error

	// ExternalLogin disables the email/password screen. The login screen then
	// only picks up a session stored by "taskman login".
	ExternalLogin bool
}

type (
	loginResultMsg struct {
		gen int
		err error
	}
	tasksLoadedMsg struct {
		gen   int
		tasks []service.Task
		err   error
	}
	submitResultMsg struct {
		gen  int
		sub  taskview.Submission
		task service.Task
		err  error
	}
	deleteResultMsg struct {
		gen int
		id  string
		err error
	}
)

type dragState struct {
	active bool
	row    int
}

// Model is the bubbletea model.
type Model struct {
	ctx     context.Context
	sess    *session.State
	connect ConnectFunc
	log     *slog.Logger
	copy    func(string) error

	externalLogin bool

	screen screen
	gen    int

	// login
	login      [2]textinput.Model
	loginFocus int
	loginErr   error
	loggingIn  bool

	// tasks
	svc       service.Service
	mgr       *taskview.Manager
	cursor    int
	offset    int // first visible task
	drag      dragState
	loading   bool
	confirmID string
	notice    string

	// form
	inputs    []textinput.Model
	formFocus int
	status    service.Status
	formErr   error

	keys   keyMap
	help   help.Model
	width  int
	height int
}

// New creates a Model. If the session is already logged in the task list is
// shown first.
func New(ctx context.Context, opts Options) Model {
	m := Model{
		ctx:     ctx,
		sess:    opts.Session,
		connect: opts.Connect,
		log:     logging.OrDiscard(opts.Log),
		copy:    opts.Copy,
		keys:    defaultKeyMap(),

		externalLogin: opts.ExternalLogin,
		help:    help.New(),
		status:  service.StatusPending,
	}
	if m.copy == nil {
		m.copy = clipboard.WriteAll
	}

	email := textinput.New()
	email.Placeholder = "email"
	email.Prompt = "Email:    "
	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	m.login = [2]textinput.Model{email, password}
	m.login[0].Focus()

	m.inputs = make([]textinput.Model, numInputs)
	for i, ph := range []string{"title", "description", "YYYY-MM-DD", "category"} {
		ti := textinput.New()
		ti.Placeholder = ph
		ti.Prompt = ""
		ti.CharLimit = 256
		m.inputs[i] = ti
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.sess != nil && m.sess.LoggedIn() {
		return func() tea.Msg { return loginResultMsg{gen: m.gen} }
	}
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	nm := next.(Model)
	nm.scrollToCursor()
	return nm, cmd
}

func (m Model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case loginResultMsg:
		return m.handleLoginResult(msg)

	case tasksLoadedMsg:
		if msg.gen != m.gen || m.mgr == nil {
			return m, nil
		}
		m.loading = false
		if err := m.mgr.ResolveLoad(msg.tasks, msg.err); err != nil {
			m.log.Debug("load failed", "err", err)
		}
		m.clampCursor()
		return m, nil

	case submitResultMsg:
		if msg.gen != m.gen || m.mgr == nil {
			return m, nil
		}
		if err := m.mgr.ResolveSubmit(msg.sub, msg.task, msg.err); err != nil {
			m.formErr = err
			return m, nil
		}
		m.formErr = nil
		if msg.sub.IsUpdate() {
			m.notice = "updated"
		} else {
			m.notice = "created"
			m.cursor = len(m.mgr.Tasks()) - 1
		}
		m.loadForm()
		m.screen = screenTasks
		return m, nil

	case deleteResultMsg:
		if msg.gen != m.gen || m.mgr == nil {
			return m, nil
		}
		if err := m.mgr.ResolveDelete(msg.id, msg.err); err == nil {
			m.notice = "deleted"
		}
		m.clampCursor()
		return m, nil

	case tea.MouseMsg:
		if m.screen == screenTasks {
			return m.handleMouse(msg)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenTasks:
			return m.updateTasks(msg)
		case screenForm:
			return m.updateForm(msg)
		case screenConfirm:
			return m.updateConfirm(msg)
		}
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.externalLogin {
		return m.updateExternalLogin(msg)
	}
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		m.login[m.loginFocus].Blur()
		m.loginFocus = 1 - m.loginFocus
		return m, m.login[m.loginFocus].Focus()
	case "enter":
		if m.loggingIn {
			return m, nil
		}
		if m.loginFocus == 0 && m.login[1].Value() == "" {
			m.login[0].Blur()
			m.loginFocus = 1
			return m, m.login[1].Focus()
		}
		m.loggingIn = true
		m.loginErr = nil
		return m, m.loginCmd(m.login[0].Value(), m.login[1].Value())
	}

	var cmd tea.Cmd
	m.login[m.loginFocus], cmd = m.login[m.loginFocus].Update(msg)
	return m, cmd
}

// updateExternalLogin waits for a session created outside the program.
func (m Model) updateExternalLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		return m, tea.Quit
	case "enter", "r":
		if ok, err := m.sess.Restore(); err != nil || !ok {
			m.log.Debug("no stored session", "err", err)
			m.loginErr = errExternalLogin
			return m, nil
		}
		m.loginErr = nil
		gen := m.gen
		return m, func() tea.Msg { return loginResultMsg{gen: gen} }
	}
	return m, nil
}

func (m Model) loginCmd(email, password string) tea.Cmd {
	ctx, sess, gen := m.ctx, m.sess, m.gen
	return func() tea.Msg {
		_, err := sess.Login(ctx, email, password)
		return loginResultMsg{gen: gen, err: err}
	}
}

func (m Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.loggingIn = false
	if msg.gen != m.gen {
		return m, nil
	}
	if msg.err != nil {
		m.loginErr = msg.err
		return m, nil
	}

	svc, err := m.connect(m.ctx, m.sess.Token())
	if err != nil {
		m.log.Debug("connect failed", "err", err)
		m.loginErr = err
		return m, nil
	}
	m.gen++
	m.svc = svc
	m.mgr = taskview.NewManager(svc)
	m.cursor = 0
	m.offset = 0
	m.notice = ""
	m.login[1].SetValue("")
	m.screen = screenTasks
	m.loading = true
	return m, m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	ctx, svc, gen := m.ctx, m.svc, m.gen
	return func() tea.Msg {
		tasks, err := svc.ListTasks(ctx)
		return tasksLoadedMsg{gen: gen, tasks: tasks, err: err}
	}
}

func (m Model) updateTasks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tasks := m.mgr.Tasks()
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.MoveUp):
		if m.cursor > 0 && m.cursor < len(tasks) {
			m.mgr.Move(m.cursor, m.cursor-1)
			m.cursor--
		}
	case key.Matches(msg, m.keys.MoveDown):
		if m.cursor < len(tasks)-1 {
			m.mgr.Move(m.cursor, m.cursor+1)
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(tasks)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Add):
		m.mgr.CancelEdit()
		m.formErr = nil
		m.loadForm()
		m.screen = screenForm
		return m, m.focusInput(inputTitle)
	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selected(); ok {
			m.mgr.Edit(t)
			m.formErr = nil
			m.loadForm()
			m.screen = screenForm
			return m, m.focusInput(inputTitle)
		}
	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(); ok && !m.mgr.Busy() {
			m.confirmID = t.ID
			m.screen = screenConfirm
		}
	case key.Matches(msg, m.keys.Reload):
		if !m.loading && !m.mgr.Busy() {
			m.loading = true
			return m, m.loadCmd()
		}
	case key.Matches(msg, m.keys.Copy):
		if t, ok := m.selected(); ok {
			if err := m.copy(t.Title); err != nil {
				m.notice = "copy failed: " + err.Error()
			} else {
				m.notice = "copied"
			}
		}
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	case msg.String() == "?":
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	if err := m.sess.Logout(); err != nil {
		m.log.Debug("logout failed", "err", err)
	}
	m.gen++
	m.svc = nil
	m.mgr = nil
	m.loading = false
	m.drag = dragState{}
	m.cursor = 0
	m.offset = 0
	m.loginErr = nil
	m.login[1].SetValue("")
	m.login[1].Blur()
	m.loginFocus = 0
	m.screen = screenLogin
	return m, m.login[0].Focus()
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	n := len(m.mgr.Tasks())
	h := m.listHeight()
	screenRow := msg.Y - listTop
	visible := screenRow >= 0 && (h == 0 || screenRow < h)

	switch msg.Action {
	case tea.MouseActionPress:
		row := screenRow + m.offset
		if msg.Button != tea.MouseButtonLeft || !visible || row >= n {
			return m, nil
		}
		m.drag = dragState{active: true, row: row}
		m.cursor = row
	case tea.MouseActionMotion:
		if !m.drag.active || n == 0 {
			return m, nil
		}
		// Dragging past an edge of the visible rows moves one step and
		// scrolls.
		if screenRow < 0 {
			screenRow = -1
		}
		if h > 0 && screenRow > h {
			screenRow = h
		}
		row := screenRow + m.offset
		if row < 0 {
			row = 0
		}
		if row >= n {
			row = n - 1
		}
		// Moving over another item moves the dragged task there.
		if row != m.drag.row {
			m.mgr.Move(m.drag.row, row)
			m.drag.row = row
			m.cursor = row
		}
	case tea.MouseActionRelease:
		m.drag = dragState{}
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mgr.CancelEdit()
		m.mgr.ClearErr()
		m.formErr = nil
		m.loadForm()
		m.screen = screenTasks
		return m, nil
	case "tab", "down":
		return m, m.focusInput((m.formFocus + 1) % (numInputs + 1))
	case "shift+tab", "up":
		return m, m.focusInput((m.formFocus + numInputs) % (numInputs + 1))
	case "enter":
		return m.submit()
	}

	if m.formFocus == numInputs {
		switch msg.String() {
		case "left", "h":
			m.status = m.status.Prev()
		case "right", "l", " ":
			m.status = m.status.Next()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.formFocus], cmd = m.inputs[m.formFocus].Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	m.mgr.SetFields(m.formFields())
	sub, err := m.mgr.BeginSubmit()
	if err != nil {
		if !errors.Is(err, taskview.ErrInFlight) {
			m.formErr = err
		}
		return m, nil
	}
	m.formErr = nil

	ctx, mgr, gen := m.ctx, m.mgr, m.gen
	return m, func() tea.Msg {
		task, err := mgr.Send(ctx, sub)
		return submitResultMsg{gen: gen, sub: sub, task: task, err: err}
	}
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := m.confirmID
		m.confirmID = ""
		m.screen = screenTasks
		if err := m.mgr.BeginDelete(id); err != nil {
			return m, nil
		}
		ctx, mgr, gen := m.ctx, m.mgr, m.gen
		return m, func() tea.Msg {
			return deleteResultMsg{gen: gen, id: id, err: mgr.SendDelete(ctx, id)}
		}
	case "n", "N", "esc", "q":
		m.confirmID = ""
		m.screen = screenTasks
	}
	return m, nil
}

// focusInput moves form focus to i; i == numInputs is the status selector.
func (m *Model) focusInput(i int) tea.Cmd {
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.formFocus = i
	if i < numInputs {
		return m.inputs[i].Focus()
	}
	return nil
}

// loadForm copies the manager's form fields into the inputs.
func (m *Model) loadForm() {
	f := m.mgr.Fields()
	m.inputs[inputTitle].SetValue(f.Title)
	m.inputs[inputDesc].SetValue(f.Description)
	m.inputs[inputDue].SetValue(f.DueDate)
	m.inputs[inputCategory].SetValue(f.Category)
	m.status = f.Status
	if m.status == "" {
		m.status = service.StatusPending
	}
}

func (m Model) formFields() service.Fields {
	return service.Fields{
		Title:       m.inputs[inputTitle].Value(),
		Description: m.inputs[inputDesc].Value(),
		DueDate:     strings.TrimSpace(m.inputs[inputDue].Value()),
		Category:    strings.TrimSpace(m.inputs[inputCategory].Value()),
		Status:      m.status,
	}
}

func (m Model) selected() (service.Task, bool) {
	tasks := m.mgr.Tasks()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return service.Task{}, false
	}
	return tasks[m.cursor], true
}

// listHeight is the number of task rows that fit on screen, or 0 before the
// terminal size is known.
func (m Model) listHeight() int {
	if m.height <= 0 {
		return 0
	}
	h := m.height - listTop - 1 - lipgloss.Height(m.help.View(m.keys))
	if h < 1 {
		h = 1
	}
	return h
}

// scrollToCursor keeps the selected task inside the visible rows.
func (m *Model) scrollToCursor() {
	h := m.listHeight()
	if m.mgr == nil || h == 0 {
		m.offset = 0
		return
	}
	n := len(m.mgr.Tasks())
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if last := n - h; m.offset > last {
		m.offset = last
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// listViewport renders lines through a viewport scrolled to the current offset.
func (m Model) listViewport(lines []string) string {
	vp := viewport.New(m.width, m.listHeight())
	vp.SetContent(strings.Join(lines, "\n"))
	vp.SetYOffset(m.offset)
	return vp.View()
}

func (m *Model) clampCursor() {
	n := len(m.mgr.Tasks())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Run starts the interactive program and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(ctx, opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
