package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/mentorlink/mentorlink/internal/app"
)

type loginModel struct {
	app *app.App

	width  int
	height int

	email    string
	password string
	busy     bool

	form *huh.Form
	err  error
}

func newLoginModel(a *app.App) *loginModel {
	m := &loginModel{app: a}
	m.form = buildLoginForm(&m.email, &m.password)
	return m
}

func buildLoginForm(email, password *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Email").Value(email).Validate(nonEmpty("email")),
			huh.NewInput().Title("Password").Value(password).
				EchoMode(huh.EchoModePassword).Validate(nonEmpty("password")),
		),
	)
}

func (m *loginModel) SetSize(w, h int) {
	m.width, m.height = w, h
}

// reset re-arms the form after a failed attempt, keeping the typed email.
func (m *loginModel) reset() {
	m.busy = false
	m.password = ""
	m.form = buildLoginForm(&m.email, &m.password)
}

func (m *loginModel) Update(msg tea.Msg) tea.Cmd {
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
		return func() tea.Msg { return gotoSignupMsg{} }
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
		email, password := m.email, m.password
		submit := func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), m.app.Config.Timeout())
			defer cancel()
			err := m.app.Session.Login(ctx, email, password)
			return loginResultMsg{err: err}
		}
		return tea.Batch(cmd, submit)
	}

	return cmd
}

func (m *loginModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Login error: %v\n\nPress Enter/Esc to go back.", m.err)
	}
	if m.busy {
		return dimStyle.Render("Signing in...")
	}
	return titleStyle.Render("Sign in") + "\n\n" + m.form.View() + "\n" +
		dimStyle.Render("ctrl+n: create an account · ctrl+c: quit")
}

func nonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}
