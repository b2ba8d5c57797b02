package extract

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"domsync/internal/dateparse"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func loadFixture(t *testing.T) *goquery.Document {
	t.Helper()
	data, err := os.ReadFile("testdata/lead.html")
	require.NoError(t, err)
	return loadDoc(t, string(data))
}

func TestExtract(t *testing.T) {
	rec := Extract(loadFixture(t))

	assert.Equal(t, "AB12CD34", rec.LeadNumber, "first heading with a lead wins")
	assert.Equal(t, "Jane", rec.FirstName)
	assert.Equal(t, "Doe", rec.LastName)
	assert.Equal(t, "jane.doe@example.com", rec.Email)
	assert.Equal(t, "6045550199", rec.PrimaryPhone)
	assert.Equal(t, "5550123", rec.PreferredPhone)
	assert.Equal(t, "Ma facture est trop élevée.", rec.Verbatim)
	assert.Equal(t, "Email-FR", rec.ConfirmationEmail)
	require.NotNil(t, rec.ReceivedDate)
	assert.Equal(t, dateparse.Parts{Year: 2026, Month: 2, Day: 5, Hour: 13, Minute: 2}, *rec.ReceivedDate)
}

func TestExtractIsIdempotent(t *testing.T) {
	doc := loadFixture(t)

	first, err := json.Marshal(Extract(doc))
	require.NoError(t, err)
	second, err := json.Marshal(Extract(doc))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractNilDocument(t *testing.T) {
	assert.Equal(t, Record{}, Extract(nil))
	assert.Equal(t, "", LeadNumber(nil))
	assert.Equal(t, "", LabeledValue(nil, "First name"))
	assert.Nil(t, ReceivedDate(nil))
	assert.Equal(t, "", AssignedTo(nil))
	assert.False(t, NeedsAssignment(nil))
	assert.False(t, ChangeStatusAvailable(nil))
}

func TestExtractMissingFields(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{name: "empty page", html: `<html><body></body></html>`},
		{name: "label without container", html: `<p class="MuiTypography-body2">First name</p><p class="MuiTypography-body1">Jane</p>`},
		{name: "container without value", html: `<div class="MuiBox-root"><p class="MuiTypography-body2">First name</p></div>`},
		{name: "heading without lead", html: `<h1 class="MuiTypography-h1">Lead #</h1><h1 class="MuiTypography-h1">Lead #lowercase</h1>`},
		{name: "timeline without caption", html: `<li class="MuiTimelineItem-root">New lead: web</li>`},
		{name: "malformed date caption", html: `<li class="MuiTimelineItem-root">New lead: web<span class="MuiTypography-caption">soon</span></li>`},
		{name: "broken markup", html: `<div class="MuiBox-root"><p class="MuiTypography-body2">First name<div`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec Record
			require.NotPanics(t, func() { rec = Extract(loadDoc(t, tt.html)) })
			assert.Equal(t, Record{}, rec)
		})
	}
}

func TestLabeledValueVariants(t *testing.T) {
	english := loadDoc(t, `
		<div class="MuiBox-root">
			<p class="MuiTypography-body2">Preferred contact number (if different from above)</p>
			<p class="MuiTypography-body1">1-250-555-0100</p>
		</div>`)
	french := loadDoc(t, `
		<div class="MuiBox-root">
			<p class="MuiTypography-body2">Numéro du contact principal</p>
			<p class="MuiTypography-body1">250 555 0101</p>
		</div>`)

	assert.Equal(t, "1-250-555-0100", LabeledValue(english, LabelPreferredPhone...))
	assert.Equal(t, "2505550100", CleanPhone(LabeledValue(english, LabelPreferredPhone...)))
	assert.Equal(t, "2505550101", CleanPhone(LabeledValue(french, LabelPreferredPhone...)))
}

func TestLabeledValueSkipsIncompleteMatches(t *testing.T) {
	doc := loadDoc(t, `
		<p class="MuiTypography-body2">Email address</p>
		<div class="MuiBox-root">
			<p class="MuiTypography-body2">Email address</p>
			<p class="MuiTypography-body1">second@example.com</p>
		</div>`)

	assert.Equal(t, "second@example.com", LabeledValue(doc, LabelEmail...))
}

func TestLabeledValueNoLabels(t *testing.T) {
	assert.Equal(t, "", LabeledValue(loadFixture(t)))
	assert.Equal(t, "", LabeledValue(loadFixture(t), ""))
}

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"+1 (604) 555-0199", "6045550199"},
		{"555-0199", "5550199"},
		{"0044 20 7946 0958 12", "7946095812"},
		{"", ""},
		{"n/a", ""},
		{"6045550199", "6045550199"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanPhone(tt.input))
		})
	}
}

func TestAssignedTo(t *testing.T) {
	assert.Equal(t, "T123456", AssignedTo(loadFixture(t)))

	partial := loadDoc(t, `<div class="MuiBox-root"><h6 class="MuiTypography-subtitle1">Assigned to someone</h6><h3 class="MuiTypography-h3">X</h3></div>`)
	assert.Equal(t, "", AssignedTo(partial), "label must match exactly")
}

func TestNeedsAssignment(t *testing.T) {
	assignButton := `<button><span class="MuiButton-label"><svg><path d="M19 3h-4.18C14.4 1.84"></path></svg>Assign to me</span></button>`

	tests := []struct {
		name     string
		html     string
		expected bool
	}{
		{
			name:     "unassigned with button",
			html:     assignButton,
			expected: true,
		},
		{
			name:     "assigned with button",
			html:     `<div class="MuiBox-root"><h6 class="MuiTypography-subtitle1">Assigned to</h6><h3 class="MuiTypography-h3">T1</h3></div>` + assignButton,
			expected: false,
		},
		{
			name:     "empty assignee with button",
			html:     `<div class="MuiBox-root"><h6 class="MuiTypography-subtitle1">Assigned to</h6><h3 class="MuiTypography-h3"> </h3></div>` + assignButton,
			expected: true,
		},
		{
			name:     "no button",
			html:     `<div></div>`,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NeedsAssignment(loadDoc(t, tt.html)))
		})
	}
}

func TestChangeStatusAvailable(t *testing.T) {
	assert.True(t, ChangeStatusAvailable(loadFixture(t)))

	disabled := loadDoc(t, `<button disabled><span class="MuiButton-label"><svg><path d="M17 3H5c-1.11 0"></path></svg></span></button>`)
	assert.False(t, ChangeStatusAvailable(disabled))

	ariaDisabled := loadDoc(t, `<button aria-disabled="true"><span class="MuiButton-label"><svg><path d="M17 3H5c-1.11 0"></path></svg></span></button>`)
	assert.False(t, ChangeStatusAvailable(ariaDisabled))

	assert.False(t, ChangeStatusAvailable(loadDoc(t, `<button>Change status</button>`)))
}

func TestRecordHelpers(t *testing.T) {
	rec := Record{FirstName: "Jane", ConfirmationEmail: "Email - FR"}
	assert.Equal(t, "Jane", rec.FullName())
	assert.Equal(t, LanguageFR, rec.Language())
	assert.True(t, rec.IsFrench())
	assert.Equal(t, "N/A", rec.DisplayDate())

	rec.ConfirmationEmail = ""
	assert.Equal(t, LanguageEN, rec.Language())

	assert.Equal(t, "N/A", Display(""))
	assert.Equal(t, "x", Display("x"))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "éé...", Truncate("ééé", 2))
}
