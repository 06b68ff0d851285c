package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type menuAction int

const (
	menuNone menuAction = iota
	menuNormalize
	menuTag
	menuNormalizeAndTag
	menuExit
)

type menuItem struct {
	action menuAction
	label  string
}

var menuItems = []menuItem{
	{menuNormalize, "Normalize pathnames"},
	{menuTag, "Tag songs"},
	{menuNormalizeAndTag, "Normalize pathnames + Tag songs"},
	{menuExit, "Exit"},
}

type menuKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Quit   key.Binding
}

var menuKeys = menuKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Choose: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "choose")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	menuTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	menuMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	menuSelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	menuStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	menuPanelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type menuModel struct {
	cursor int
	chosen menuAction
	status string
}

func newMenuModel(status string) menuModel {
	return menuModel{status: status}
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, menuKeys.Quit):
		m.chosen = menuExit
		return m, tea.Quit
	case key.Matches(keyMsg, menuKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, menuKeys.Down):
		if m.cursor < len(menuItems)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, menuKeys.Choose):
		m.chosen = menuItems[m.cursor].action
		return m, tea.Quit
	default:
		if n, err := strconv.Atoi(keyMsg.String()); err == nil && n >= 1 && n <= len(menuItems) {
			m.cursor = n - 1
			m.chosen = menuItems[n-1].action
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m menuModel) View() string {
	var b strings.Builder
	for i, item := range menuItems {
		line := fmt.Sprintf("%d: %s", i+1, item.label)
		if i == m.cursor {
			line = menuSelStyle.Render(line)
		}
		b.WriteString(line)
		if i < len(menuItems)-1 {
			b.WriteString("\n")
		}
	}
	parts := []string{
		menuTitleStyle.Render("anitag"),
		menuMutedStyle.Render("Select an option to continue"),
		menuPanelStyle.Render(b.String()),
	}
	if m.status != "" {
		parts = append(parts, menuStatusStyle.Render(m.status))
	}
	parts = append(parts, menuMutedStyle.Render("1-4 or ↑/↓ + enter · q to quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func newMenuCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Pick normalize / tag from an interactive menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdin.Fd()) {
				return errors.New("menu requires an interactive terminal (TTY)")
			}
			status := ""
			for {
				final, err := tea.NewProgram(newMenuModel(status), tea.WithContext(cmd.Context())).Run()
				if err != nil {
					return err
				}
				model, ok := final.(menuModel)
				if !ok {
					return nil
				}
				done, err := runMenuAction(cmd, ctx, model.chosen)
				if done {
					return nil
				}
				switch {
				case errors.Is(err, context.Canceled):
					return err
				case err != nil:
					status = "Failed: " + err.Error()
				default:
					status = "Finished: " + menuItems[model.cursor].label
				}
			}
		},
	}
}

// runMenuAction performs the chosen action. It reports true when the menu
// should close.
func runMenuAction(cmd *cobra.Command, ctx *commandContext, action menuAction) (bool, error) {
	selfTest := selfTestMode(cmd, ctx, false)
	switch action {
	case menuNormalize:
		return false, runNormalize(cmd, ctx, false)
	case menuTag:
		return false, runTag(cmd, ctx, selfTest)
	case menuNormalizeAndTag:
		if err := runNormalize(cmd, ctx, false); err != nil {
			return false, err
		}
		return false, runTag(cmd, ctx, selfTest)
	default:
		return true, nil
	}
}
