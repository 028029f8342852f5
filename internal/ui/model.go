package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/prefs"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/state"
)

type screen int

const (
	screenLogin screen = iota
	screenCookbooks
	screenRecipes
	screenCreate
)

const (
	fieldEmail = iota
	fieldPassword
)

type (
	snapshotMsg state.Snapshot

	loginDoneMsg struct {
		email string
		res   api.Result[api.TokenResponse]
	}
	cookbooksMsg struct {
		res api.Result[api.PaginatedList[api.Cookbook]]
	}
	recipesMsg struct {
		cookbookID int
		res        api.Result[api.PaginatedList[api.RecipeBrief]]
	}
	actionDoneMsg struct {
		done     string
		problem  *api.Problem
		canceled bool
	}
	loggedOutMsg struct{ err error }
)

// Model is the bubbletea model for the cookbook client.
type Model struct {
	ctx     context.Context
	backend Backend
	store   *state.Store
	logger  *slog.Logger
	every   time.Duration

	keys     keyMap
	help     help.Model
	showHelp bool

	theme     Theme
	prefs     prefs.Prefs
	prefsPath string

	screen screen
	width  int
	height int

	inputs []textinput.Model
	focus  int
	title  textinput.Model

	books   table.Model
	recipes table.Model
	spin    spinner.Model
	busy    bool

	snap     state.Snapshot
	page     int
	selected api.Cookbook
	flash    string
}

func newModel(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	every := opts.RefreshEvery
	if every <= 0 {
		every = defaultUIInterval
	}

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.SetValue(opts.Prefs.LastEmail)

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	title := textinput.New()
	title.Placeholder = "cookbook title"
	title.CharLimit = 255

	m := Model{
		ctx:       opts.Context,
		backend:   opts.Backend,
		store:     opts.Store,
		logger:    logger,
		every:     every,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		theme:     GetTheme(opts.Prefs.Theme),
		prefs:     opts.Prefs,
		prefsPath: opts.PrefsPath,
		inputs:    []textinput.Model{email, password},
		title:     title,
		books: table.New(
			table.WithColumns(cookbookColumns(80)),
			table.WithFocused(true),
			table.WithHeight(10),
		),
		recipes: table.New(
			table.WithColumns(recipeColumns(80)),
			table.WithFocused(true),
			table.WithHeight(10),
		),
		spin: spinner.New(spinner.WithSpinner(spinner.Dot)),
		page: 1,
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	m.applyTheme()

	if opts.SignedIn {
		m.screen = screenCookbooks
		m.busy = true
	} else {
		m.screen = screenLogin
		if email.Value() != "" {
			m.focus = fieldPassword
		}
		m.inputs[m.focus].Focus()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tick(), m.spin.Tick}
	if m.screen == screenCookbooks {
		cmds = append(cmds, m.loadCookbooks())
	} else {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case snapshotMsg:
		next, cmd := m.applySnapshot(state.Snapshot(msg))
		return next, tea.Batch(cmd, m.tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case loginDoneMsg:
		return m.handleLogin(msg)

	case cookbooksMsg:
		m.busy = false
		if msg.res.Canceled() {
			return m, nil
		}
		if msg.res.IsOK() {
			m.store.UpdateCookbooks(&msg.res.Value, nil)
		} else {
			m.store.UpdateCookbooks(nil, msg.res.Problem)
		}
		return m.applySnapshot(m.store.Snapshot())

	case recipesMsg:
		m.busy = false
		if msg.res.Canceled() {
			return m, nil
		}
		if msg.res.IsOK() {
			m.store.UpdateRecipes(msg.cookbookID, &msg.res.Value, nil)
		} else {
			m.store.UpdateRecipes(msg.cookbookID, nil, msg.res.Problem)
		}
		return m.applySnapshot(m.store.Snapshot())

	case actionDoneMsg:
		m.busy = false
		if msg.canceled {
			return m, nil
		}
		if msg.problem != nil {
			m.store.RecordProblem(msg.problem)
			m.flash = ""
			return m.applySnapshot(m.store.Snapshot())
		}
		m.store.ClearProblem()
		m.flash = msg.done
		m.busy = true
		return m, m.loadCookbooks()

	case loggedOutMsg:
		m.busy = false
		if msg.err != nil {
			m.flash = "Log out failed: " + msg.err.Error()
			return m, nil
		}
		m.store.SignedOut()
		m.snap = m.store.Snapshot()
		m.toLogin("Signed out.")
		return m, textinput.Blink

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.screen {
	case screenLogin:
		return m.handleLoginKey(msg)
	case screenCreate:
		return m.handleCreateKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil
	case key.Matches(msg, m.keys.Logout):
		m.busy = true
		return m, m.logout()
	case key.Matches(msg, m.keys.Refresh):
		m.busy = true
		if m.screen == screenRecipes {
			return m, m.loadRecipes(m.selected.ID)
		}
		return m, m.loadCookbooks()
	}

	if m.screen == screenRecipes {
		if key.Matches(msg, m.keys.Back) {
			m.screen = screenCookbooks
			return m, nil
		}
		var cmd tea.Cmd
		m.recipes, cmd = m.recipes.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Open):
		book, ok := m.cursorCookbook()
		if !ok {
			return m, nil
		}
		m.selected = book
		m.screen = screenRecipes
		m.recipes.SetRows(nil)
		m.busy = true
		return m, m.loadRecipes(book.ID)
	case key.Matches(msg, m.keys.Next):
		if m.snap.CookbookPages > m.page {
			m.page++
			m.busy = true
			return m, m.loadCookbooks()
		}
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		if m.page > 1 {
			m.page--
			m.busy = true
			return m, m.loadCookbooks()
		}
		return m, nil
	case key.Matches(msg, m.keys.New):
		m.screen = screenCreate
		m.title.SetValue("")
		return m, m.title.Focus()
	case key.Matches(msg, m.keys.Delete):
		book, ok := m.cursorCookbook()
		if !ok {
			return m, nil
		}
		m.busy = true
		return m, m.deleteCookbook(book)
	}

	var cmd tea.Cmd
	m.books, cmd = m.books.Update(msg)
	return m, cmd
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Submit):
		if m.focus == fieldEmail {
			return m.focusField(fieldPassword)
		}
		email := strings.TrimSpace(m.inputs[fieldEmail].Value())
		password := m.inputs[fieldPassword].Value()
		if email == "" || password == "" {
			m.flash = "Enter your email and password."
			return m, nil
		}
		m.busy = true
		m.flash = ""
		return m, m.login(email, password)
	case key.Matches(msg, m.keys.NextField):
		return m.focusField((m.focus + 1) % len(m.inputs))
	case key.Matches(msg, m.keys.PrevField):
		return m.focusField((m.focus + len(m.inputs) - 1) % len(m.inputs))
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) handleCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.title.Blur()
		m.screen = screenCookbooks
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		title := strings.TrimSpace(m.title.Value())
		if title == "" {
			m.flash = "A cookbook needs a title."
			return m, nil
		}
		m.title.Blur()
		m.screen = screenCookbooks
		m.busy = true
		return m, m.createCookbook(title)
	}
	var cmd tea.Cmd
	m.title, cmd = m.title.Update(msg)
	return m, cmd
}

func (m Model) focusField(i int) (tea.Model, tea.Cmd) {
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.focus = i
	return m, m.inputs[i].Focus()
}

func (m Model) handleLogin(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.res.Canceled() {
		return m, nil
	}
	if !msg.res.IsOK() {
		m.flash = describeProblem(msg.res.Problem)
		m.inputs[fieldPassword].SetValue("")
		return m, nil
	}

	m.store.SignedIn(msg.email)
	m.snap = m.store.Snapshot()
	m.prefs.LastEmail = msg.email
	m.savePrefs()

	m.inputs[fieldPassword].SetValue("")
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.flash = ""
	m.screen = screenCookbooks
	m.page = 1
	m.busy = true
	return m, m.loadCookbooks()
}

func (m Model) applySnapshot(snap state.Snapshot) (tea.Model, tea.Cmd) {
	m.snap = snap
	if snap.SessionExpired && m.screen != screenLogin {
		m.toLogin(ProblemMessage(api.KindUnauthorized, ""))
		return m, textinput.Blink
	}
	m.books.SetRows(cookbookRows(snap.Cookbooks))
	if snap.RecipesFor == m.selected.ID {
		m.recipes.SetRows(recipeRows(snap.Recipes))
	}
	return m, nil
}

func (m *Model) toLogin(flash string) {
	m.screen = screenLogin
	m.busy = false
	m.flash = flash
	m.selected = api.Cookbook{}
	m.inputs[fieldPassword].SetValue("")
	m.focus = fieldPassword
	if strings.TrimSpace(m.inputs[fieldEmail].Value()) == "" {
		m.focus = fieldEmail
	}
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.inputs[m.focus].Focus()
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.prefs.Theme = m.theme.Name
	m.applyTheme()
	m.savePrefs()
}

func (m *Model) savePrefs() {
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("save prefs failed", slog.String("error", err.Error()))
	}
}

func (m *Model) applyTheme() {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(m.theme.Accent)).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(m.theme.SelectionText)).
		Background(lipgloss.Color(m.theme.SelectionBg)).
		Bold(false)
	s.Cell = s.Cell.Foreground(lipgloss.Color(m.theme.Text))
	m.books.SetStyles(s)
	m.recipes.SetStyles(s)
	m.spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
}

func (m *Model) resize() {
	// Header, banner, footer and panel borders.
	h := m.height - 8
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	m.books.SetColumns(cookbookColumns(w))
	m.books.SetHeight(h)
	m.books.SetWidth(w)
	m.recipes.SetColumns(recipeColumns(w))
	m.recipes.SetHeight(h)
	m.recipes.SetWidth(w)
	m.help.Width = m.width
}

func (m Model) cursorCookbook() (api.Cookbook, bool) {
	i := m.books.Cursor()
	if i < 0 || i >= len(m.snap.Cookbooks) {
		return api.Cookbook{}, false
	}
	return m.snap.Cookbooks[i], true
}

func (m Model) pageSize() int {
	if m.prefs.PageSize > 0 {
		return m.prefs.PageSize
	}
	return 10
}

// Commands

func (m Model) tick() tea.Cmd {
	store := m.store
	return tea.Tick(m.every, func(time.Time) tea.Msg {
		return snapshotMsg(store.Snapshot())
	})
}

func (m Model) login(email, password string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		return loginDoneMsg{email: email, res: backend.Login(ctx, email, password)}
	}
}

func (m Model) logout() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		return loggedOutMsg{err: backend.Logout(ctx)}
	}
}

func (m Model) loadCookbooks() tea.Cmd {
	ctx, backend, page, size := m.ctx, m.backend, m.page, m.pageSize()
	return func() tea.Msg {
		return cookbooksMsg{res: backend.GetCookbooks(ctx, page, size)}
	}
}

func (m Model) loadRecipes(cookbookID int) tea.Cmd {
	ctx, backend, size := m.ctx, m.backend, m.pageSize()
	return func() tea.Msg {
		return recipesMsg{cookbookID: cookbookID, res: backend.GetRecipes(ctx, cookbookID, "", 1, size)}
	}
}

func (m Model) createCookbook(title string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		res := backend.CreateCookbook(ctx, api.CreateCookbookInput{Title: title})
		return actionDone(res.Canceled(), res.Problem, fmt.Sprintf("Created %q (#%d).", title, res.Value.CookbookID))
	}
}

func (m Model) deleteCookbook(book api.Cookbook) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		res := backend.DeleteCookbook(ctx, book.ID)
		return actionDone(res.Canceled(), res.Problem, fmt.Sprintf("Deleted %q.", book.Title))
	}
}

func actionDone(canceled bool, problem *api.Problem, done string) actionDoneMsg {
	return actionDoneMsg{done: done, problem: problem, canceled: canceled}
}

// Table helpers

func cookbookColumns(width int) []table.Column {
	fixed := 6 + 9 + 9
	title := width - fixed - 8
	if title < 12 {
		title = 12
	}
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Title", Width: title},
		{Title: "Recipes", Width: 9},
		{Title: "Members", Width: 9},
	}
}

func recipeColumns(width int) []table.Column {
	title := width - 6 - 4
	if title < 12 {
		title = 12
	}
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Title", Width: title},
	}
}

func cookbookRows(books []api.Cookbook) []table.Row {
	rows := make([]table.Row, 0, len(books))
	for _, b := range books {
		rows = append(rows, table.Row{
			strconv.Itoa(b.ID),
			b.Title,
			strconv.Itoa(b.RecipeCount),
			strconv.Itoa(b.MembersCount),
		})
	}
	return rows
}

func recipeRows(recipes []api.RecipeBrief) []table.Row {
	rows := make([]table.Row, 0, len(recipes))
	for _, r := range recipes {
		rows = append(rows, table.Row{strconv.Itoa(r.ID), r.Title})
	}
	return rows
}
