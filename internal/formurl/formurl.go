// Package formurl builds the prefilled URL of the external submission form
// from the extracted case record and the operator's selections.
//
// The form is addressed by opaque field identifiers. Parameter order is
// fixed so that the same inputs always produce the same URL.
package formurl

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"domsync/internal/errors"
	"domsync/internal/extract"
)

// Endpoint is the external form's prefill address.
const Endpoint = "https://docs.google.com/forms/d/e/1FAIpQLSfJ0AQaptO3wIaa09kJhHGULvApaiAdQRnTJzCq7CzwmP3SKw/viewform"

// Form field identifiers.
const (
	FieldReceivedDate   = "entry.1882987299"
	FieldLOB            = "entry.506082014"
	FieldBrand          = "entry.104012616"
	FieldCustomerType   = "entry.1228494129"
	FieldProduct        = "entry.1098890156"
	FieldLanguage       = "entry.500460836"
	FieldAccountID      = "entry.615216667"
	FieldFullName       = "entry.1133516513"
	FieldPrimaryPhone   = "entry.504696174"
	FieldPreferredPhone = "entry.1161771354"
	FieldVerbatim       = "entry.961402602"
)

// Input holds the operator's selections for one submission.
type Input struct {
	AccountID    string // BAN/CID
	Brand        string
	Product      string
	LOB          string
	CustomerType string
	Language     string
	Note         string // optional note for the receiving agent
}

// Validate reports every required selection that is missing or not one of
// the offered choices. The account ID must be 1 to 9 characters once
// trimmed.
func (in Input) Validate() error {
	var missing []string

	id := strings.TrimSpace(in.AccountID)
	if id == "" || len([]rune(id)) > MaxAccountIDLen {
		missing = append(missing, "BAN/CID")
	}
	if !slices.Contains(Brands, in.Brand) {
		missing = append(missing, "brand")
	}
	if !slices.Contains(Products, in.Product) {
		missing = append(missing, "product")
	}
	if !slices.Contains(LOBs, in.LOB) {
		missing = append(missing, "LOB")
	}
	if !slices.Contains(CustomerTypes, in.CustomerType) {
		missing = append(missing, "customer type")
	}
	if !slices.Contains(Languages, in.Language) {
		missing = append(missing, "language")
	}

	if len(missing) > 0 {
		return errors.NewValidationError(missing...)
	}
	return nil
}

// Param is one key/value pair of the form query.
type Param struct {
	Key   string
	Value string
}

// Payload is the ordered parameter list for one submission. It is built
// fresh every time and never cached.
type Payload []Param

// Get returns the value of the first parameter named key.
func (p Payload) Get(key string) (string, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return "", false
}

// Encode joins the parameters as a query string, keeping their order.
// Values are escaped with spaces as "+".
func (p Payload) Encode() string {
	var b strings.Builder
	for i, param := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(param.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(param.Value))
	}
	return b.String()
}

// URL returns the full prefill address for the payload.
func (p Payload) URL() string {
	return Endpoint + "?" + p.Encode()
}

// NoteVerbatim prefixes the verbatim with the operator's note when one was
// entered.
func NoteVerbatim(note, verbatim string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return verbatim
	}
	return "[NOTE FOR AGENT: " + note + "] " + verbatim
}

// Build assembles the payload from a freshly extracted record and the
// operator's selections.
//
// Order:
//  1. Received date parts, only when the record has a date
//  2. LOB, brand, customer type, product, language, BAN/CID (always)
//  3. Full name, primary phone, preferred phone, verbatim (only when non-empty)
//
// Build does not validate; callers check Input.Validate first.
func Build(rec extract.Record, in Input) Payload {
	var p Payload

	if d := rec.ReceivedDate; d != nil {
		p = append(p,
			Param{FieldReceivedDate + "_year", strconv.Itoa(d.Year)},
			Param{FieldReceivedDate + "_month", strconv.Itoa(d.Month)},
			Param{FieldReceivedDate + "_day", strconv.Itoa(d.Day)},
			Param{FieldReceivedDate + "_hour", strconv.Itoa(d.Hour)},
			Param{FieldReceivedDate + "_minute", strconv.Itoa(d.Minute)},
		)
	}

	p = append(p,
		Param{FieldLOB, in.LOB},
		Param{FieldBrand, in.Brand},
		Param{FieldCustomerType, in.CustomerType},
		Param{FieldProduct, in.Product},
		Param{FieldLanguage, in.Language},
		Param{FieldAccountID, strings.TrimSpace(in.AccountID)},
	)

	optional := []Param{
		{FieldFullName, rec.FullName()},
		{FieldPrimaryPhone, rec.PrimaryPhone},
		{FieldPreferredPhone, rec.PreferredPhone},
		{FieldVerbatim, NoteVerbatim(in.Note, rec.Verbatim)},
	}
	for _, param := range optional {
		if param.Value != "" {
			p = append(p, param)
		}
	}

	return p
}

// URL validates the selections and returns the prefill address.
func URL(rec extract.Record, in Input) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	return Build(rec, in).URL(), nil
}
