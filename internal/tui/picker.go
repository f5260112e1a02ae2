package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/mclogin/internal/config"
)

// PickerModel lets the user choose one of the stored accounts.
type PickerModel struct {
	list     AccountListModel
	title    string
	chosen   bool
	quitting bool
}

// NewPickerModel creates a picker over accounts.
func NewPickerModel(title string, accounts []config.Account, now time.Time) PickerModel {
	return PickerModel{
		list:  NewAccountListModel(accounts, now),
		title: title,
	}
}

// Init implements tea.Model.
func (m PickerModel) Init() tea.Cmd {
	return nil
}

// Update handles navigation and selection keys.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		m.list = m.list.MoveUp()
	case "down", "j":
		m.list = m.list.MoveDown()
	case "enter":
		if len(m.list.accounts) > 0 {
			m.chosen = true
			return m, tea.Quit
		}
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// Selected returns the chosen account, and false when the user quit without choosing.
func (m PickerModel) Selected() (config.Account, bool) {
	if !m.chosen {
		return config.Account{}, false
	}
	return m.list.SelectedAccount(), true
}

// View renders the picker.
func (m PickerModel) View() string {
	header := titleStyle.Render(fmt.Sprintf(" mclogin | %s", m.title)) + "\n"
	footer := dimStyle.Render(" ↑/↓: navigate   enter: select   q: quit") + "\n"
	return header + separator + m.list.View() + "\n" + separator + footer
}

// RunPicker shows the picker and returns the chosen account.
func RunPicker(title string, accounts []config.Account, opts ...tea.ProgramOption) (config.Account, bool, error) {
	final, err := tea.NewProgram(NewPickerModel(title, accounts, time.Now()), opts...).Run()
	if err != nil {
		return config.Account{}, false, fmt.Errorf("running account picker: %w", err)
	}
	acc, ok := final.(PickerModel).Selected()
	return acc, ok, nil
}
