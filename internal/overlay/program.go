package overlay

import (
	"context"
	"sync"

	"domsync/internal/extract"

	tea "github.com/charmbracelet/bubbletea"
)

// ProgramView implements View by sending messages to a running program.
// Calls made before Attach are dropped.
type ProgramView struct {
	mu sync.RWMutex
	p  *tea.Program
}

var _ View = (*ProgramView)(nil)

// NewProgramView returns a view that is not attached yet.
func NewProgramView() *ProgramView {
	return &ProgramView{}
}

// Attach routes later calls to p.
func (v *ProgramView) Attach(p *tea.Program) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.p = p
}

func (v *ProgramView) send(msg tea.Msg) {
	v.mu.RLock()
	p := v.p
	v.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

func (v *ProgramView) Render(rec extract.Record)   { v.send(renderMsg{rec}) }
func (v *ProgramView) ShowTimedOut(message string) { v.send(timedOutMsg{message}) }
func (v *ProgramView) ShowNotice(message string)   { v.send(noticeMsg{message}) }
func (v *ProgramView) ShowTranslation(text string) { v.send(translationMsg{text}) }
func (v *ProgramView) ResetForm()                  { v.send(resetFormMsg{}) }
func (v *ProgramView) SetLanguage(lang string)     { v.send(languageMsg{lang}) }
func (v *ProgramView) SetNextEnabled(enabled bool) { v.send(nextEnabledMsg{enabled}) }
func (v *ProgramView) Collapse()                   { v.send(collapseMsg{true}) }
func (v *ProgramView) Expand()                     { v.send(collapseMsg{false}) }
func (v *ProgramView) Alert(message string)        { v.send(alertMsg{message}) }

// Run shows the panel until the operator quits or ctx is done. start runs
// once the program is receiving messages.
func Run(ctx context.Context, view *ProgramView, actions Actions, start func() error) error {
	p := tea.NewProgram(
		NewModel(actions, start),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	view.Attach(p)
	_, err := p.Run()
	return err
}
