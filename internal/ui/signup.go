package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/mentorlink/mentorlink/internal/api"
	"github.com/mentorlink/mentorlink/internal/app"
)

type signupModel struct {
	app *app.App

	width  int
	height int

	name     string
	email    string
	password string
	confirm  string
	role     string
	busy     bool

	form *huh.Form
	err  error
}

func newSignupModel(a *app.App) *signupModel {
	m := &signupModel{app: a, role: string(api.RoleStudent)}
	m.form = m.buildForm()
	return m
}

func (m *signupModel) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&m.name).Validate(nonEmpty("name")),
			huh.NewInput().Title("Email").Value(&m.email).Validate(nonEmpty("email")),
			huh.NewSelect[string]().Title("Role").
				Options(
					huh.NewOption("Student", string(api.RoleStudent)),
					huh.NewOption("Mentor", string(api.RoleMentor)),
				).
				Value(&m.role),
			huh.NewInput().Title("Password").Value(&m.password).
				EchoMode(huh.EchoModePassword).Validate(nonEmpty("password")),
			huh.NewInput().Title("Confirm password").Value(&m.confirm).
				EchoMode(huh.EchoModePassword).Validate(nonEmpty("confirm password")),
		),
	)
}

func (m *signupModel) SetSize(w, h int) {
	m.width, m.height = w, h
}

// reset re-arms the form after a rejected signup.
func (m *signupModel) reset() {
	m.busy = false
	m.password = ""
	m.confirm = ""
	m.form = m.buildForm()
}

func (m *signupModel) Update(msg tea.Msg) tea.Cmd {
	if m.err != nil {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			if msg.String() == "esc" || msg.String() == "enter" {
				m.err = nil
				m.reset()
			}
		}
		return nil
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+n" {
		return func() tea.Msg { return gotoLoginMsg{} }
	}

	if m.busy {
		return nil
	}

	updated, cmd := m.form.Update(msg)
	f, ok := updated.(*huh.Form)
	if !ok {
		m.err = fmt.Errorf("internal error: unexpected form model type")
		return nil
	}
	m.form = f

	if m.form.State == huh.StateCompleted {
		m.busy = true
		name, email, password, confirm := m.name, m.email, m.password, m.confirm
		role := api.Role(m.role)
		submit := func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), m.app.Config.Timeout())
			defer cancel()
			ok := m.app.Session.Signup(ctx, name, email, password, confirm, role)
			return signupResultMsg{ok: ok}
		}
		return tea.Batch(cmd, submit)
	}

	return cmd
}

func (m *signupModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Signup error: %v\n\nPress Enter/Esc to go back.", m.err)
	}
	if m.busy {
		return dimStyle.Render("Creating account...")
	}
	return titleStyle.Render("Create an account") + "\n\n" + m.form.View() + "\n" +
		dimStyle.Render("ctrl+n: back to sign in · ctrl+c: quit")
}
