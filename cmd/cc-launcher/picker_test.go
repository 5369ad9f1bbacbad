package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyMsg(key tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: key}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(p picker, msgs ...tea.Msg) picker {
	for _, msg := range msgs {
		model, _ := p.Update(msg)
		p = model.(picker)
	}
	return p
}

func TestPickerCancel(t *testing.T) {
	for name, msg := range map[string]tea.Msg{
		"esc":    keyMsg(tea.KeyEsc),
		"ctrl+c": keyMsg(tea.KeyCtrlC),
		"q":      runes("q"),
	} {
		t.Run(name, func(t *testing.T) {
			p := press(newPicker("test", []string{"a", "b"}, nil, nil), msg)
			assert.Nil(t, p.Selected())
			assert.True(t, p.done)
		})
	}
}

func TestPickerConfirmEmpty(t *testing.T) {
	p := newPicker("test", []string{"a", "b", "c"}, nil, nil)
	p.cursor = len(p.items)
	p = press(p, keyMsg(tea.KeyEnter))
	result := p.Selected()
	require.NotNil(t, result)
	assert.Empty(t, result)
}

func TestPickerToggleAndConfirm(t *testing.T) {
	p := newPicker("test", []string{"a", "b", "c"}, nil, nil)
	p = press(p,
		keyMsg(tea.KeyEnter),
		keyMsg(tea.KeyDown),
		keyMsg(tea.KeyDown),
		keyMsg(tea.KeySpace),
		keyMsg(tea.KeyDown),
		keyMsg(tea.KeyEnter),
	)
	assert.True(t, p.done)
	assert.Equal(t, []string{"a", "c"}, p.Selected())
}

func TestPickerPreselectedAndBulk(t *testing.T) {
	p := newPicker("test", []string{"a", "b", "c"}, nil, []string{"b"})
	assert.Equal(t, []string{"b"}, p.Selected())

	p = press(p, runes("a"))
	assert.Equal(t, []string{"a", "b", "c"}, p.Selected())

	p = press(p, runes("n"))
	assert.Empty(t, p.Selected())
}

func TestPickerCursorBounds(t *testing.T) {
	p := newPicker("test", []string{"a"}, nil, nil)
	p = press(p, keyMsg(tea.KeyUp))
	assert.Equal(t, 0, p.cursor)
	p = press(p, keyMsg(tea.KeyDown), keyMsg(tea.KeyDown), keyMsg(tea.KeyDown))
	assert.Equal(t, 1, p.cursor)
}

func TestPickerViewUsesLabels(t *testing.T) {
	p := newPicker("Servers", []string{"fs"}, []string{"fs (core)"}, []string{"fs"})
	view := p.View()
	assert.True(t, strings.Contains(view, "> [x] fs (core)"))
	assert.Contains(t, view, "[ Confirm ]")
}
