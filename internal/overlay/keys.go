package overlay

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next      key.Binding
	Prev      key.Binding
	Left      key.Binding
	Right     key.Binding
	Submit    key.Binding
	CopyURL   key.Binding
	NextCase  key.Binding
	Reset     key.Binding
	Extract   key.Binding
	Translate key.Binding
	Collapse  key.Binding
	CopyName  key.Binding
	CopyEmail key.Binding
	CopyPhone key.Binding
	CopyPref  key.Binding
	Dismiss   key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Next:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Prev:      key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		Left:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←/→", "choose")),
		Right:     key.NewBinding(key.WithKeys("right")),
		Submit:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		CopyURL:   key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy URL")),
		NextCase:  key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next case")),
		Reset:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reset")),
		Extract:   key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "extract data")),
		Translate: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "translate")),
		Collapse:  key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "collapse")),
		CopyName:  key.NewBinding(key.WithKeys("alt+1"), key.WithHelp("alt+1..4", "copy name/email/phone/contact")),
		CopyEmail: key.NewBinding(key.WithKeys("alt+2")),
		CopyPhone: key.NewBinding(key.WithKeys("alt+3")),
		CopyPref:  key.NewBinding(key.WithKeys("alt+4")),
		Dismiss:   key.NewBinding(key.WithKeys("enter", "esc"), key.WithHelp("enter", "dismiss")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.CopyURL, k.NextCase, k.Reset, k.Extract, k.Translate, k.Collapse, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Left},
		{k.Submit, k.CopyURL, k.NextCase, k.Reset},
		{k.Extract, k.Translate, k.Collapse, k.CopyName, k.Quit},
	}
}
