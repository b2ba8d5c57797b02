// Package overlay is the operator-facing panel: the extracted data, the
// decision form and the case actions.
//
// The controller talks to the panel only through View, and the panel calls
// back only through Actions. Neither side blocks on the other.
package overlay

import (
	"domsync/internal/extract"
	"domsync/internal/formurl"
)

// View is what the controller can do to the panel. Implementations must
// not block and must not call Actions synchronously.
type View interface {
	// Render shows rec. An empty lead number shows the waiting heading.
	Render(rec extract.Record)
	// ShowTimedOut replaces the waiting heading with a persistent notice.
	ShowTimedOut(message string)
	// ShowNotice displays a non-blocking status line.
	ShowNotice(message string)
	// ShowTranslation displays a translated verbatim.
	ShowTranslation(text string)
	// ResetForm clears every operator input.
	ResetForm()
	// SetLanguage selects the customer language without marking it as a
	// manual choice.
	SetLanguage(lang string)
	SetNextEnabled(enabled bool)
	Collapse()
	Expand()
	// Alert shows a blocking message the operator has to dismiss.
	Alert(message string)
}

// Actions are the operator's buttons. Each call may block on the page; the
// panel runs them off its event loop.
type Actions interface {
	Extract() error
	Reset() error
	Submit(in formurl.Input) error
	CopyURL(in formurl.Input) (string, error)
	Next() error
	Translate() error
	LanguageChanged()
	Close() error
}
