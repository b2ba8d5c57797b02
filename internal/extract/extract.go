// Package extract maps a snapshot of the case-management page to a typed
// case record.
//
// The page is owned by a third party and re-renders continuously, so every
// lookup here is defensive: a missing element, label or value resolves to
// the field's empty value. Nothing in this package returns an error.
//
// All functions are pure over the *goquery.Document they are given.
package extract

import (
	"regexp"
	"strings"

	"domsync/internal/dateparse"

	"github.com/PuerkitoBio/goquery"
)

// Selectors for the host application's component library classes.
const (
	HeadingSelector       = "h1.MuiTypography-h1"
	LabelSelector         = ".MuiTypography-body2"
	ValueSelector         = ".MuiTypography-body1"
	ContainerSelector     = ".MuiBox-root"
	SubtitleSelector      = ".MuiTypography-subtitle1"
	AssigneeValueSelector = ".MuiTypography-h3"
	TimelineItemSelector  = ".MuiTimelineItem-root"
	CaptionSelector       = ".MuiTypography-caption"

	// Icon path prefixes identify buttons whose labels are localized.
	ChangeStatusIconSelector = `button .MuiButton-label svg path[d*="M17 3H5c-1.11"]`
	AssignToMeIconSelector   = `button .MuiButton-label svg path[d*="M19 3h-4.18"]`
)

// Label variants. Bilingual fields list every variant the host renders.
var (
	LabelFirstName         = []string{"First name"}
	LabelLastName          = []string{"Last name"}
	LabelEmail             = []string{"Email address"}
	LabelPrimaryPhone      = []string{"Primary phone number"}
	LabelPreferredPhone    = []string{"Numéro du contact principal", "Preferred contact number (if different from above)"}
	LabelVerbatim          = []string{"Pouvez-vous décrire le problème", "Can you share your unresolved concern"}
	LabelConfirmationEmail = []string{"Confirmation Email"}
)

const (
	assignedToLabel = "Assigned to"
	newLeadMarker   = "New lead:"
)

var leadPattern = regexp.MustCompile(`Lead #([A-Z0-9]+)`)

// Extract reads every field of the case record from the page.
//
// A nil document yields the zero Record. Running Extract twice on the
// same unchanged page yields identical records.
func Extract(doc *goquery.Document) Record {
	if doc == nil {
		return Record{}
	}
	return Record{
		LeadNumber:        LeadNumber(doc),
		FirstName:         LabeledValue(doc, LabelFirstName...),
		LastName:          LabeledValue(doc, LabelLastName...),
		Email:             LabeledValue(doc, LabelEmail...),
		PrimaryPhone:      CleanPhone(LabeledValue(doc, LabelPrimaryPhone...)),
		PreferredPhone:    CleanPhone(LabeledValue(doc, LabelPreferredPhone...)),
		Verbatim:          LabeledValue(doc, LabelVerbatim...),
		ReceivedDate:      ReceivedDate(doc),
		ConfirmationEmail: LabeledValue(doc, LabelConfirmationEmail...),
	}
}

// LeadNumber returns the token after "Lead #" in the first page heading
// that carries one, or "" when no heading does.
func LeadNumber(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	var lead string
	doc.Find(HeadingSelector).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if m := leadPattern.FindStringSubmatch(h.Text()); m != nil {
			lead = m[1]
			return false
		}
		return true
	})
	return lead
}

// LabeledValue finds the value rendered next to a label.
//
// Lookup:
//  1. Walk label-styled elements in document order
//  2. For the first whose text contains any of labels, go up to the
//     nearest layout container
//  3. Return the trimmed text of the container's first value element
//
// Elements whose container or value element is missing are skipped.
func LabeledValue(doc *goquery.Document, labels ...string) string {
	if doc == nil || len(labels) == 0 {
		return ""
	}
	var value string
	doc.Find(LabelSelector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := el.Text()
		for _, label := range labels {
			if label == "" || !strings.Contains(text, label) {
				continue
			}
			container := el.Closest(ContainerSelector)
			if container.Length() == 0 {
				continue
			}
			valueEl := container.Find(ValueSelector).First()
			if valueEl.Length() == 0 {
				continue
			}
			value = strings.TrimSpace(valueEl.Text())
			return false
		}
		return true
	})
	return value
}

// CleanPhone strips every non-digit and keeps at most the last 10 digits,
// which drops country-code prefixes of any length. Shorter numbers are
// returned as they are.
func CleanPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

// ReceivedDate parses the caption of the timeline entry that announced the
// lead. Returns nil when no such entry exists or its caption is malformed.
func ReceivedDate(doc *goquery.Document) *dateparse.Parts {
	if doc == nil {
		return nil
	}
	var parts *dateparse.Parts
	doc.Find(TimelineItemSelector).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if !strings.Contains(item.Text(), newLeadMarker) {
			return true
		}
		caption := item.Find(CaptionSelector).First()
		if caption.Length() == 0 {
			return true
		}
		parts = dateparse.Parse(strings.TrimSpace(caption.Text()))
		return false
	})
	return parts
}

// AssignedTo returns the assignment identifier (TID) shown in the
// "Assigned to" block, or "" when the case is unassigned.
func AssignedTo(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	var tid string
	doc.Find(SubtitleSelector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if el.Text() != assignedToLabel {
			return true
		}
		container := el.Closest(ContainerSelector)
		if container.Length() == 0 {
			return true
		}
		valueEl := container.Find(AssigneeValueSelector).First()
		if valueEl.Length() == 0 {
			return true
		}
		tid = strings.TrimSpace(valueEl.Text())
		return false
	})
	return tid
}

// NeedsAssignment reports whether the operator must press "Assign to me"
// before submitting: the case has no assignee and the button is present.
func NeedsAssignment(doc *goquery.Document) bool {
	if doc == nil {
		return false
	}
	if AssignedTo(doc) != "" {
		return false
	}
	return iconButton(doc, AssignToMeIconSelector).Length() > 0
}

// ChangeStatusAvailable reports whether the host's "Change status" button
// is rendered and enabled.
func ChangeStatusAvailable(doc *goquery.Document) bool {
	if doc == nil {
		return false
	}
	btn := iconButton(doc, ChangeStatusIconSelector)
	if btn.Length() == 0 {
		return false
	}
	_, disabled := btn.Attr("disabled")
	return !disabled && btn.AttrOr("aria-disabled", "false") != "true"
}

// iconButton returns the button enclosing the first element matching
// iconSelector.
func iconButton(doc *goquery.Document, iconSelector string) *goquery.Selection {
	return doc.Find(iconSelector).First().Closest("button")
}
