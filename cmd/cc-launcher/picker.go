package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// picker is a multi-select TUI where Enter toggles items and confirms at the bottom.
type picker struct {
	title    string
	items    []string
	labels   []string
	selected map[int]bool
	cursor   int
	done     bool
}

// newPicker builds a picker over items. labels, when non-nil, are shown in
// place of the items and must have the same length.
func newPicker(title string, items, labels []string, preselected []string) picker {
	p := picker{
		title:    title,
		items:    items,
		labels:   labels,
		selected: make(map[int]bool),
	}
	for i, item := range items {
		for _, s := range preselected {
			if s == item {
				p.selected[i] = true
			}
		}
	}
	return p
}

func (p picker) Init() tea.Cmd { return nil }

func (p picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			p.selected = nil
			p.done = true
			return p, tea.Quit
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(p.items) {
				p.cursor++
			}
		case " ":
			if p.cursor < len(p.items) {
				p.selected[p.cursor] = !p.selected[p.cursor]
			}
		case "enter":
			if p.cursor == len(p.items) {
				p.done = true
				return p, tea.Quit
			}
			p.selected[p.cursor] = !p.selected[p.cursor]
		case "a":
			for i := range p.items {
				p.selected[i] = true
			}
		case "n":
			for i := range p.items {
				p.selected[i] = false
			}
		}
	}
	return p, nil
}

func (p picker) View() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("  %s\n", p.title))
	b.WriteString("  space/enter: toggle · a: select all · n: select none\n\n")

	for i, item := range p.items {
		cursor := "  "
		if p.cursor == i {
			cursor = "> "
		}
		check := "[ ]"
		if p.selected[i] {
			check = "[x]"
		}
		label := item
		if p.labels != nil {
			label = p.labels[i]
		}
		b.WriteString(fmt.Sprintf("  %s%s %s\n", cursor, check, label))
	}

	b.WriteString("\n")
	if p.cursor == len(p.items) {
		b.WriteString("  > [ Confirm ]\n")
	} else {
		b.WriteString("    [ Confirm ]\n")
	}

	return b.String()
}

// Selected returns the selected items in list order, or nil if cancelled.
func (p picker) Selected() []string {
	if p.selected == nil {
		return nil
	}
	result := []string{}
	for i, item := range p.items {
		if p.selected[i] {
			result = append(result, item)
		}
	}
	return result
}

// runPicker runs the picker. Cancelling returns huh.ErrUserAborted.
func runPicker(title string, items, labels, preselected []string) ([]string, error) {
	p := newPicker(title, items, labels, preselected)
	model, err := tea.NewProgram(p).Run()
	if err != nil {
		return nil, err
	}
	selected := model.(picker).Selected()
	if selected == nil {
		return nil, huh.ErrUserAborted
	}
	return selected, nil
}
