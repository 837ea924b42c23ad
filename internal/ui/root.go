package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mentorlink/mentorlink/internal/app"
	"github.com/mentorlink/mentorlink/internal/notify"
	"github.com/mentorlink/mentorlink/internal/realtime"
)

type screen int

const (
	screenLoading screen = iota
	screenLogin
	screenSignup
	screenDashboard
	screenCourses
)

const noticeTTL = 4 * time.Second

// Messages shared across screens.
type (
	sessionCheckedMsg struct{}
	loginResultMsg    struct{ err error }
	signupResultMsg   struct{ ok bool }
	logoutDoneMsg     struct{}

	gotoSignupMsg    struct{}
	gotoLoginMsg     struct{}
	gotoCoursesMsg   struct{}
	logoutRequestMsg struct{}

	noticeMsg        notify.Notice
	noticeExpiredMsg struct{ at time.Time }
	channelEventMsg  struct{ ev realtime.Event }
)

// rootModel routes between screens by auth state: unauthenticated users see
// login/signup, authenticated ones the dashboard and the course catalog.
type rootModel struct {
	app *app.App

	width  int
	height int

	active screen

	login     *loginModel
	signup    *signupModel
	dashboard *dashboardModel
	courses   *coursesModel

	sub    *realtime.Subscriber
	notice *notify.Notice
	spin   spinner.Model
}

// NewRootModel builds the application root. The session check runs first;
// until it resolves the screen is a loading placeholder.
func NewRootModel(a *app.App) tea.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return &rootModel{app: a, active: screenLoading, spin: s}
}

func (m *rootModel) Init() tea.Cmd {
	return tea.Batch(m.checkSession(), m.waitForNotice(), m.spin.Tick)
}

func (m *rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resizeAll()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.teardown()
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.active != screenLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case noticeMsg:
		n := notify.Notice(msg)
		m.notice = &n
		return m, tea.Batch(m.waitForNotice(), m.expireNotice(n.At))

	case noticeExpiredMsg:
		if m.notice != nil && m.notice.At.Equal(msg.at) {
			m.notice = nil
		}
		return m, nil

	case sessionCheckedMsg:
		if m.app.Session.Authenticated() {
			return m, m.enterDashboard()
		}
		m.activate(screenLogin)
		return m, nil

	case loginResultMsg:
		if msg.err == nil {
			return m, m.enterDashboard()
		}
		if m.login != nil {
			m.login.reset()
		}
		return m, nil

	case signupResultMsg:
		if msg.ok {
			m.signup = nil
			m.activate(screenLogin)
			return m, nil
		}
		if m.signup != nil {
			m.signup.reset()
		}
		return m, nil

	case gotoSignupMsg:
		m.activate(screenSignup)
		return m, nil

	case gotoLoginMsg:
		m.activate(screenLogin)
		return m, nil

	case gotoCoursesMsg:
		m.activate(screenCourses)
		if m.courses != nil {
			return m, m.courses.load()
		}
		return m, nil

	case logoutRequestMsg:
		return m, m.logout()

	case logoutDoneMsg:
		m.closeRealtime()
		m.dashboard = nil
		m.courses = nil
		m.activate(screenLogin)
		return m, nil

	case channelEventMsg:
		var cmd tea.Cmd
		if m.dashboard != nil {
			cmd = m.dashboard.handleEvent(msg.ev)
		}
		return m, tea.Batch(cmd, m.waitForEvent())
	}

	switch m.active {
	case screenLogin:
		if m.login == nil {
			m.activate(screenLogin)
		}
		return m, m.login.Update(msg)
	case screenSignup:
		if m.signup == nil {
			m.activate(screenSignup)
		}
		return m, m.signup.Update(msg)
	case screenDashboard:
		if m.dashboard == nil {
			return m, nil
		}
		return m, m.dashboard.Update(msg)
	case screenCourses:
		if m.courses == nil {
			return m, nil
		}
		cmd := m.courses.Update(msg)
		if m.courses.Done {
			m.courses.Done = false
			m.activate(screenDashboard)
		}
		return m, cmd
	default:
		return m, nil
	}
}

func (m *rootModel) View() string {
	var body string
	switch m.active {
	case screenLoading:
		body = m.spin.View() + dimStyle.Render("Checking session...")
	case screenLogin:
		if m.login != nil {
			body = m.login.View()
		}
	case screenSignup:
		if m.signup != nil {
			body = m.signup.View()
		}
	case screenDashboard:
		if m.dashboard != nil {
			body = m.dashboard.View()
		}
	case screenCourses:
		if m.courses != nil {
			body = m.courses.View()
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.header(), body, m.noticeLine())
}

func (m *rootModel) header() string {
	title := titleStyle.Render("mentorlink")
	right := ""
	if id := m.app.Session.Identity(); id != nil {
		right = dimStyle.Render(id.Name + " (" + string(id.Role) + ") · " + m.app.Realtime.State().String())
	}
	if m.app.Session.Degraded() {
		right += " " + bannerStyle.Render("server unreachable")
	}
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return title + lipgloss.NewStyle().Width(gap).Render("") + right
}

func (m *rootModel) noticeLine() string {
	if m.notice == nil {
		return ""
	}
	switch m.notice.Level {
	case notify.LevelError:
		return errStyle.Render(m.notice.Text)
	case notify.LevelSuccess:
		return successStyle.Render(m.notice.Text)
	default:
		return infoStyle.Render(m.notice.Text)
	}
}

// activate switches screens, building the target lazily.
func (m *rootModel) activate(s screen) {
	m.active = s
	switch s {
	case screenLogin:
		if m.login == nil {
			m.login = newLoginModel(m.app)
			m.login.SetSize(m.width, m.height-2)
		}
	case screenSignup:
		if m.signup == nil {
			m.signup = newSignupModel(m.app)
			m.signup.SetSize(m.width, m.height-2)
		}
	case screenCourses:
		if m.courses == nil {
			m.courses = newCoursesModel(m.app)
			m.courses.SetSize(m.width, m.height-2)
		}
	}
}

// enterDashboard starts the realtime channel for the fresh identity and
// builds the dashboard.
func (m *rootModel) enterDashboard() tea.Cmd {
	id := m.app.Session.Identity()
	if id == nil {
		m.activate(screenLogin)
		return nil
	}

	m.login = nil
	m.signup = nil
	m.dashboard = newDashboardModel(m.app, *id)
	m.dashboard.SetSize(m.width, m.height-2)
	m.active = screenDashboard

	m.sub = m.app.Realtime.Subscribe()
	connect := func() tea.Msg {
		_ = m.app.Realtime.Connect(id.ID)
		return nil
	}
	return tea.Batch(connect, m.waitForEvent(), m.dashboard.load())
}

func (m *rootModel) logout() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.app.Config.Timeout())
		defer cancel()
		m.app.Session.Logout(ctx)
		return logoutDoneMsg{}
	}
}

func (m *rootModel) teardown() {
	m.closeRealtime()
}

func (m *rootModel) closeRealtime() {
	m.app.Realtime.Close()
	if m.sub != nil {
		m.app.Realtime.Unsubscribe(m.sub)
		m.sub = nil
	}
}

func (m *rootModel) checkSession() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.app.Config.Timeout())
		defer cancel()
		m.app.Session.CheckSession(ctx)
		return sessionCheckedMsg{}
	}
}

func (m *rootModel) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-m.app.Notices.C())
	}
}

func (m *rootModel) waitForEvent() tea.Cmd {
	sub := m.sub
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case ev := <-sub.Ch:
			return channelEventMsg{ev: ev}
		case <-sub.Done():
			// Logged out; the pending wait must not outlive the subscriber.
			return nil
		}
	}
}

func (m *rootModel) expireNotice(at time.Time) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{at: at}
	})
}

func (m *rootModel) resizeAll() {
	h := m.height - 2
	if m.login != nil {
		m.login.SetSize(m.width, h)
	}
	if m.signup != nil {
		m.signup.SetSize(m.width, h)
	}
	if m.dashboard != nil {
		m.dashboard.SetSize(m.width, h)
	}
	if m.courses != nil {
		m.courses.SetSize(m.width, h)
	}
}
