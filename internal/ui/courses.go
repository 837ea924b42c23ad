package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/mentorlink/mentorlink/internal/api"
	"github.com/mentorlink/mentorlink/internal/app"
)

type (
	catalogLoadedMsg struct {
		courses []api.Course
		err     error
	}
	courseCreatedMsg struct {
		course *api.Course
		err    error
	}
)

type courseItem struct {
	course api.Course
}

func (i courseItem) Title() string       { return i.course.Name }
func (i courseItem) Description() string { return i.course.Description }
func (i courseItem) FilterValue() string { return i.course.Name }

type coursesState int

const (
	coursesStateList coursesState = iota
	coursesStateCreate
)

// coursesModel is the course catalog screen. Mentors can add courses;
// students browse.
type coursesModel struct {
	app *app.App

	width  int
	height int

	Done bool

	state   coursesState
	list    list.Model
	loading bool

	name        string
	description string
	busy        bool
	form        *huh.Form
}

func newCoursesModel(a *app.App) *coursesModel {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Courses"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return &coursesModel{app: a, list: l, loading: true}
}

func (m *coursesModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *coursesModel) load() tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.app.Config.Timeout())
		defer cancel()
		courses, err := m.app.API.Courses(ctx)
		return catalogLoadedMsg{courses: courses, err: err}
	}
}

func (m *coursesModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case catalogLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.app.Notices.Error("Failed to load courses")
			return nil
		}
		items := make([]list.Item, 0, len(msg.courses))
		for _, c := range msg.courses {
			items = append(items, courseItem{course: c})
		}
		m.list.SetItems(items)
		return nil

	case courseCreatedMsg:
		m.busy = false
		m.state = coursesStateList
		if msg.err != nil {
			m.app.Notices.Error("Failed to create course")
			return nil
		}
		m.app.Notices.Success("Course created successfully")
		m.list.SetItems(append(m.list.Items(), courseItem{course: *msg.course}))
		return nil
	}

	switch m.state {
	case coursesStateList:
		return m.updateList(msg)
	case coursesStateCreate:
		return m.updateCreate(msg)
	}
	return nil
}

func (m *coursesModel) updateList(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "q":
			m.Done = true
			return nil
		case "n":
			if m.app.Session.Identity() == nil || m.app.Session.Identity().Role != api.RoleMentor {
				m.app.Notices.Info("Only mentors can create courses")
				return nil
			}
			m.state = coursesStateCreate
			m.name = ""
			m.description = ""
			m.form = buildCourseForm(&m.name, &m.description)
			return m.form.Init()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func buildCourseForm(name, description *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Course name").Value(name).Validate(nonEmpty("course name")),
			huh.NewText().Title("Description").Value(description).Validate(nonEmpty("description")),
		),
	)
}

func (m *coursesModel) updateCreate(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" && !m.busy {
		m.state = coursesStateList
		return nil
	}
	if m.busy || m.form == nil {
		return nil
	}

	updated, cmd := m.form.Update(msg)
	if f, ok := updated.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.busy = true
		name, description := m.name, m.description
		submit := func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), m.app.Config.Timeout())
			defer cancel()
			course, err := m.app.API.CreateCourse(ctx, name, description)
			return courseCreatedMsg{course: course, err: err}
		}
		return tea.Batch(cmd, submit)
	}

	return cmd
}

func (m *coursesModel) View() string {
	switch m.state {
	case coursesStateCreate:
		if m.busy {
			return dimStyle.Render("Creating course...")
		}
		return titleStyle.Render("Create a new course") + "\n\n" + m.form.View() + "\n" +
			dimStyle.Render("esc: cancel")
	default:
		if m.loading {
			return dimStyle.Render("Loading courses...")
		}
		footer := "esc: back to dashboard"
		if id := m.app.Session.Identity(); id != nil && id.Role == api.RoleMentor {
			footer = "n: create course · " + footer
		}
		if len(m.list.Items()) == 0 {
			return titleStyle.Render("Courses") + "\n\n" +
				dimStyle.Render("No courses available") + "\n\n" + dimStyle.Render(footer)
		}
		return fmt.Sprintf("%s\n%s", m.list.View(), dimStyle.Render(footer))
	}
}
