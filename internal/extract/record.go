package extract

import (
	"strings"

	"domsync/internal/dateparse"
)

// Record is the case data read from one page snapshot.
//
// LeadNumber is the only identity: every other field may be transiently
// empty while the host is still rendering and must never be used to decide
// whether two records describe the same case.
type Record struct {
	LeadNumber        string           `json:"leadNumber"`
	FirstName         string           `json:"firstName"`
	LastName          string           `json:"lastName"`
	Email             string           `json:"email"`
	PrimaryPhone      string           `json:"primaryPhone"`
	PreferredPhone    string           `json:"preferredPhone"`
	Verbatim          string           `json:"verbatim"`
	ReceivedDate      *dateparse.Parts `json:"receivedDate"`
	ConfirmationEmail string           `json:"confirmationEmail"`
}

// Language codes offered to the operator.
const (
	LanguageEN = "EN"
	LanguageFR = "FR"
)

// notAvailable is shown in place of empty fields.
const notAvailable = "N/A"

// FullName joins first and last name, trimmed.
func (r Record) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Language infers the customer's language from the confirmation email
// setting: FR when it mentions "fr", EN otherwise (including when empty).
func (r Record) Language() string {
	if strings.Contains(strings.ToLower(r.ConfirmationEmail), "fr") {
		return LanguageFR
	}
	return LanguageEN
}

// IsFrench reports whether the confirmation email setting points to French.
func (r Record) IsFrench() bool {
	return r.Language() == LanguageFR
}

// Display returns value, or "N/A" when it is empty.
func Display(value string) string {
	if value == "" {
		return notAvailable
	}
	return value
}

// DisplayDate formats the received date, or "N/A" when there is none.
func (r Record) DisplayDate() string {
	if r.ReceivedDate == nil {
		return notAvailable
	}
	return r.ReceivedDate.String()
}

// Truncate shortens text to maxLen runes, appending "..." when cut.
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
