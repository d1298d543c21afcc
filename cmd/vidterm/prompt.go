package main

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"
)

// promptModel waits for enter before playback starts.
type promptModel struct {
	msg       string
	confirmed bool
	done      bool
}

func newPromptModel(msg string) *promptModel {
	return &promptModel{msg: msg}
}

// Init implements [tea.Model].
func (m *promptModel) Init() tea.Cmd {
	return nil
}

// Update confirms on enter and declines on q, esc, or ctrl+c.
func (m *promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "enter":
		m.confirmed = true
		m.done = true

		return m, tea.Quit

	case "q", "esc", "ctrl+c":
		m.done = true

		return m, tea.Quit
	}

	return m, nil
}

// View renders the prompt until it is answered.
func (m *promptModel) View() tea.View {
	if m.done {
		return tea.NewView("")
	}

	return tea.NewView(m.msg + " (q to quit)\n")
}

// waitForEnter shows msg and reports whether the user pressed enter.
func waitForEnter(ctx context.Context, msg string) (bool, error) {
	p := tea.NewProgram(newPromptModel(msg))

	stop := context.AfterFunc(ctx, p.Quit)
	defer stop()

	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("prompt: %w", err)
	}

	m, ok := final.(*promptModel)
	if !ok || ctx.Err() != nil {
		return false, nil
	}

	return m.confirmed, nil
}
