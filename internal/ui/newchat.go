package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/mentorlink/mentorlink/internal/api"
	"github.com/mentorlink/mentorlink/internal/app"
)

type (
	selectorCoursesMsg struct {
		courses []api.Course
		err     error
	}
	chatCreatedMsg struct {
		chat *api.Chat
		err  error
	}
	newChatClosedMsg struct{}
)

// newChatModel is the course selector flow: pick a course, name the mentor,
// ask the opening question. Completing it creates (or reopens) the thread.
type newChatModel struct {
	app *app.App

	width  int
	height int

	courses     []api.Course
	courseID    string
	mentorEmail string
	question    string
	loading     bool
	busy        bool

	form *huh.Form
}

func newNewChatModel(a *app.App) *newChatModel {
	return &newChatModel{app: a, loading: true}
}

func (m *newChatModel) SetSize(w, h int) {
	m.width, m.height = w, h
}

func (m *newChatModel) load() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.app.Config.Timeout())
		defer cancel()
		courses, err := m.app.API.Courses(ctx)
		return selectorCoursesMsg{courses: courses, err: err}
	}
}

func (m *newChatModel) buildForm() *huh.Form {
	options := make([]huh.Option[string], 0, len(m.courses))
	for _, c := range m.courses {
		options = append(options, huh.NewOption(c.Name, c.ID))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Course").Options(options...).Value(&m.courseID),
			huh.NewInput().Title("Mentor email").Value(&m.mentorEmail).Validate(nonEmpty("mentor email")),
			huh.NewText().Title("Your question").Value(&m.question).
				Validate(nonEmpty("question")),
		),
	)
}

func (m *newChatModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case selectorCoursesMsg:
		m.loading = false
		if msg.err != nil {
			m.app.Notices.Error("Failed to load courses")
			return func() tea.Msg { return newChatClosedMsg{} }
		}
		if len(msg.courses) == 0 {
			m.app.Notices.Info("No courses available yet")
			return func() tea.Msg { return newChatClosedMsg{} }
		}
		m.courses = msg.courses
		m.form = m.buildForm()
		return m.form.Init()

	case tea.KeyMsg:
		if msg.String() == "esc" && !m.busy {
			return func() tea.Msg { return newChatClosedMsg{} }
		}
	}

	if m.loading || m.busy || m.form == nil {
		return nil
	}

	updated, cmd := m.form.Update(msg)
	if f, ok := updated.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.busy = true
		courseID, mentorEmail, question := m.courseID, m.mentorEmail, m.question
		submit := func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), m.app.Config.Timeout())
			defer cancel()
			chat, err := m.app.API.AccessChat(ctx, mentorEmail, courseID, question)
			if err != nil {
				if api.IsUnreachable(err) {
					m.app.Notices.Error("Unable to connect to the server. Please try again later.")
				} else {
					m.app.Notices.Error(err.Error())
				}
				return chatCreatedMsg{err: err}
			}
			return chatCreatedMsg{chat: chat}
		}
		return tea.Batch(cmd, submit)
	}

	return cmd
}

func (m *newChatModel) View() string {
	switch {
	case m.loading:
		return dimStyle.Render("Loading courses...")
	case m.busy:
		return dimStyle.Render("Starting chat...")
	case m.form == nil:
		return ""
	}
	return titleStyle.Render("Start a new chat") + "\n\n" + m.form.View() + "\n" +
		dimStyle.Render(fmt.Sprintf("%d courses · esc: cancel", len(m.courses)))
}
