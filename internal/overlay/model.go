package overlay

import (
	stderrors "errors"
	"fmt"
	"strings"

	"domsync/internal/errors"
	"domsync/internal/extract"
	"domsync/internal/formurl"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Panel text.
const (
	WaitingMsg    = "Waiting up to 60 seconds for the user to open a new lead..."
	CopiedMsg     = "✓ Copied to clipboard!"
	NothingToCopy = "Nothing to copy."
	verbatimLimit = 100
)

// --- Messages ---

type renderMsg struct{ record extract.Record }
type timedOutMsg struct{ message string }
type noticeMsg struct{ message string }
type translationMsg struct{ text string }
type resetFormMsg struct{}
type languageMsg struct{ lang string }
type nextEnabledMsg struct{ enabled bool }
type collapseMsg struct{ collapsed bool }
type alertMsg struct{ message string }

type actionDoneMsg struct {
	action string
	err    error
}

// --- Form ---

type field int

const (
	fieldLOB field = iota
	fieldBrand
	fieldCustomerType
	fieldProduct
	fieldLanguage
	fieldAccountID
	fieldNote
	fieldCount
)

// choice is a single-select field. index is -1 while nothing is chosen.
type choice struct {
	label   string
	options []string
	index   int
}

func newChoice(label string, options []string) choice {
	return choice{label: label, options: options, index: -1}
}

func (c choice) value() string {
	if c.index < 0 || c.index >= len(c.options) {
		return ""
	}
	return c.options[c.index]
}

func (c *choice) cycle(step int) {
	n := len(c.options)
	if n == 0 {
		return
	}
	if c.index < 0 {
		if step > 0 {
			c.index = 0
		} else {
			c.index = n - 1
		}
		return
	}
	c.index = ((c.index+step)%n + n) % n
}

func (c *choice) set(value string) {
	c.index = -1
	for i, opt := range c.options {
		if opt == value {
			c.index = i
			return
		}
	}
}

// --- Model ---

// Model is the bubbletea model of the panel.
type Model struct {
	actions Actions
	start   func() error
	copy    func(text string) error
	keys    keyMap
	help    help.Model

	record      extract.Record
	timedOut    string
	notice      string
	translation string
	alert       string
	status      string

	choices   [fieldAccountID]choice
	accountID textinput.Model
	note      textarea.Model
	focus     field

	nextEnabled bool
	collapsed   bool
	width       int
}

// NewModel creates the panel. start, when not nil, runs once the program
// is up; the controller's view calls block until then.
func NewModel(actions Actions, start func() error) Model {
	accountID := textinput.New()
	accountID.Placeholder = "BAN or CID"
	accountID.CharLimit = formurl.MaxAccountIDLen
	accountID.Width = 12

	note := textarea.New()
	note.Placeholder = "Optional note for the receiving agent"
	note.ShowLineNumbers = false
	note.CharLimit = 1000
	note.SetHeight(3)
	note.SetWidth(60)

	m := Model{
		actions:   actions,
		start:     start,
		copy:      clipboard.WriteAll,
		keys:      newKeyMap(),
		help:      help.New(),
		accountID: accountID,
		note:      note,
	}
	m.choices[fieldLOB] = newChoice("LOB", formurl.LOBs)
	m.choices[fieldBrand] = newChoice("Brand", formurl.Brands)
	m.choices[fieldCustomerType] = newChoice("Customer type", formurl.CustomerTypes)
	m.choices[fieldProduct] = newChoice("Product", formurl.Products)
	m.choices[fieldLanguage] = newChoice("Language", formurl.Languages)
	return m
}

func (m Model) Init() tea.Cmd {
	if m.start == nil {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.run("start", m.start))
}

// Input returns the operator's current selections.
func (m Model) Input() formurl.Input {
	return formurl.Input{
		AccountID:    m.accountID.Value(),
		Brand:        m.choices[fieldBrand].value(),
		Product:      m.choices[fieldProduct].value(),
		LOB:          m.choices[fieldLOB].value(),
		CustomerType: m.choices[fieldCustomerType].value(),
		Language:     m.choices[fieldLanguage].value(),
		Note:         m.note.Value(),
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.note.SetWidth(min(60, max(20, msg.Width-8)))
		return m, nil

	case renderMsg:
		m.record = msg.record
		m.timedOut = ""
		m.translation = ""
		return m, nil

	case timedOutMsg:
		m.timedOut = msg.message
		return m, nil

	case noticeMsg:
		m.notice = msg.message
		return m, nil

	case translationMsg:
		m.translation = msg.text
		return m, nil

	case resetFormMsg:
		return m, m.resetForm()

	case languageMsg:
		m.choices[fieldLanguage].set(msg.lang)
		return m, nil

	case nextEnabledMsg:
		m.nextEnabled = msg.enabled
		return m, nil

	case collapseMsg:
		m.collapsed = msg.collapsed
		return m, nil

	case alertMsg:
		m.alert = msg.message
		return m, nil

	case actionDoneMsg:
		m.status = ""
		if msg.err != nil && !errors.IsPrecondition(msg.err) {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.alert != "" {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Dismiss):
			m.alert = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Collapse):
		m.collapsed = !m.collapsed
		return m, nil
	case key.Matches(msg, m.keys.Extract):
		return m, m.run("extract", m.actions.Extract)
	case key.Matches(msg, m.keys.Reset):
		return m, m.run("reset", m.actions.Reset)
	case key.Matches(msg, m.keys.Translate):
		return m, m.run("translate", m.actions.Translate)
	case key.Matches(msg, m.keys.NextCase):
		if !m.nextEnabled {
			return m, nil
		}
		m.nextEnabled = false
		return m, m.run("next case", m.actions.Next)
	case key.Matches(msg, m.keys.Submit):
		in := m.Input()
		if in.Validate() != nil {
			return m, nil
		}
		actions := m.actions
		return m, m.run("submit", func() error { return actions.Submit(in) })
	case key.Matches(msg, m.keys.CopyURL):
		in := m.Input()
		if in.Validate() != nil {
			return m, nil
		}
		actions := m.actions
		return m, m.run("copy URL", func() error {
			_, err := actions.CopyURL(in)
			return err
		})
	case key.Matches(msg, m.keys.CopyName):
		return m, m.copyValue(m.record.FullName())
	case key.Matches(msg, m.keys.CopyEmail):
		return m, m.copyValue(m.record.Email)
	case key.Matches(msg, m.keys.CopyPhone):
		return m, m.copyValue(m.record.PrimaryPhone)
	case key.Matches(msg, m.keys.CopyPref):
		return m, m.copyValue(m.record.PreferredPhone)
	case key.Matches(msg, m.keys.Next):
		return m, m.setFocus((m.focus + 1) % fieldCount)
	case key.Matches(msg, m.keys.Prev):
		return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
	}

	if m.collapsed {
		return m, nil
	}
	if m.focus < fieldAccountID {
		step := 0
		switch {
		case key.Matches(msg, m.keys.Left):
			step = -1
		case key.Matches(msg, m.keys.Right):
			step = 1
		}
		if step == 0 {
			return m, nil
		}
		m.choices[m.focus].cycle(step)
		if m.focus == fieldLanguage {
			actions := m.actions
			return m, func() tea.Msg {
				actions.LanguageChanged()
				return nil
			}
		}
		return m, nil
	}
	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case fieldAccountID:
		m.accountID, cmd = m.accountID.Update(msg)
	case fieldNote:
		m.note, cmd = m.note.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f field) tea.Cmd {
	m.focus = f
	m.accountID.Blur()
	m.note.Blur()
	switch f {
	case fieldAccountID:
		return m.accountID.Focus()
	case fieldNote:
		return m.note.Focus()
	}
	return nil
}

func (m *Model) resetForm() tea.Cmd {
	for i := range m.choices {
		m.choices[i].index = -1
	}
	m.accountID.Reset()
	m.note.Reset()
	m.notice = ""
	m.status = ""
	return m.setFocus(fieldLOB)
}

func (m Model) run(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn()}
	}
}

func (m Model) copyValue(value string) tea.Cmd {
	if value == "" {
		return func() tea.Msg { return noticeMsg{NothingToCopy} }
	}
	write := m.copy
	return func() tea.Msg {
		if err := write(value); err != nil {
			return actionDoneMsg{action: "copy", err: err}
		}
		return noticeMsg{CopiedMsg}
	}
}

// --- View ---

func (m Model) View() string {
	if m.alert != "" {
		return alertStyle.Render(
			labelStyle.Render("⚠️  Attention") + "\n\n" + m.alert + "\n\n" +
				mutedStyle.Render("press enter to dismiss"))
	}
	if m.collapsed {
		return panelStyle.Render(titleStyle.Render("domsync") + "  " +
			m.leadLine() + "  " + mutedStyle.Render("ctrl+o to expand"))
	}

	sections := []string{
		titleStyle.Render("domsync"),
		m.dataView(),
		"",
		m.formView(),
		"",
		m.buttonsView(),
	}
	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}
	if m.status != "" {
		sections = append(sections, waitingStyle.Render(m.status))
	}
	sections = append(sections, m.help.View(m.keys))
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) leadLine() string {
	if m.record.LeadNumber == "" {
		return waitingStyle.Render("no lead")
	}
	return "Lead #" + m.record.LeadNumber
}

func (m Model) dataView() string {
	heading := labelStyle.Render("Extracted Data:")
	switch {
	case m.timedOut != "":
		heading += " " + waitingStyle.Render(m.timedOut)
	case m.record.LeadNumber == "":
		heading += " " + waitingStyle.Render(WaitingMsg)
	}

	r := m.record
	rows := []string{
		heading,
		columns(pair("Lead #", r.LeadNumber), pair("Date", r.DisplayDate())),
		columns(pair("Name", r.FullName()), pair("Email", r.Email)),
		columns(pair("Phone", r.PrimaryPhone), pair("Contact #", r.PreferredPhone)),
		pair("Verbatim", extract.Truncate(r.Verbatim, verbatimLimit)),
	}
	if m.translation != "" {
		rows = append(rows, pair("Translation", m.translation))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) formView() string {
	var rows []string
	for i, c := range m.choices {
		value := mutedStyle.Render("choose")
		if v := c.value(); v != "" {
			value = v
		}
		rows = append(rows, m.fieldLabel(field(i), c.label)+"< "+value+" >")
	}
	rows = append(rows,
		m.fieldLabel(fieldAccountID, "BAN/CID")+m.accountID.View(),
		m.fieldLabel(fieldNote, "Note for agent"),
		m.note.View(),
	)

	var verr *errors.ValidationError
	if stderrors.As(m.Input().Validate(), &verr) {
		rows = append(rows, mutedStyle.Render("Missing: "+strings.Join(verr.Fields, ", ")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) fieldLabel(f field, label string) string {
	if m.focus == f {
		return focusStyle.Render("› "+label+": ")
	}
	return "  " + labelStyle.Render(label+": ")
}

func (m Model) buttonsView() string {
	valid := m.Input().Validate() == nil
	return lipgloss.JoinHorizontal(lipgloss.Top,
		button("Submit", valid), " ",
		button("Copy URL", valid), " ",
		button("Next", m.nextEnabled), " ",
		button("Reset", true), " ",
		button("Extract Data", true), " ",
		button("Translate", m.record.Verbatim != ""),
	)
}

func button(label string, enabled bool) string {
	if enabled {
		return buttonStyle.Render(label)
	}
	return disabledButtonStyle.Render(label)
}

func pair(label, value string) string {
	return labelStyle.Render(label+":") + " " + extract.Display(value)
}

func columns(left, right string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(40).Render(left), right)
}
