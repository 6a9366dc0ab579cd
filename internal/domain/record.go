package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Quantity is the administered dose amount. Registry extracts encode it
// inconsistently as a JSON number or a quoted string; either form decodes
// to its textual value, so one malformed encoding never fails the load.
type Quantity string

// UnmarshalJSON accepts a JSON number or string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = Quantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quantity must be a number or string: %w", err)
	}
	*q = Quantity(n)
	return nil
}

func (q Quantity) String() string {
	return string(q)
}

// ImmunizationRecord is a single administered-dose record as exported from
// the registry. Records are immutable once loaded; every derived value
// (tier, score, aggregates) is recomputed from them on demand.
type ImmunizationRecord struct {
	// Identity
	DocID     string `json:"doc_id"`
	PatientID string `json:"patient_id"`

	// Clinical
	VaccineName      string   `json:"vaccine_name"`
	Quantity         Quantity `json:"quantity,omitempty"`
	Units            string   `json:"units"`
	NDC              string   `json:"ndc"`
	LotNumber        string   `json:"lot_number"`
	ExpirationDate   string   `json:"expiration_date"`
	AdministeredDate string   `json:"administered_date"`
	Status           string   `json:"status"`

	// Registry / compliance
	VFCStatus     string `json:"vfc_status"`
	FundingSource string `json:"funding_source"`

	// Demographics and contact
	Age       *float64 `json:"age,omitempty"`
	Race      string   `json:"race"`
	Ethnicity string   `json:"ethnicity"`
	Mobile    string   `json:"mobile"`
	Email     string   `json:"email"`
}

// FieldMissing is the universal missingness predicate: a value is missing
// iff it is empty or whitespace-only. Absent JSON keys decode to "" and are
// therefore missing too. Every consumer in the audit core uses this
// predicate; there are no field-specific missingness rules.
func FieldMissing(value string) bool {
	return strings.TrimSpace(value) == ""
}

// QuantityMissing applies the missingness predicate to the numeric quantity.
func (r *ImmunizationRecord) QuantityMissing() bool {
	return FieldMissing(r.Quantity.String())
}

// ContactMissing reports whether the record is missing a contact channel.
// Contact counts as one category: missing if either mobile or email is absent.
func (r *ImmunizationRecord) ContactMissing() bool {
	return FieldMissing(r.Mobile) || FieldMissing(r.Email)
}

// AdministeredDay returns the date portion of the administered date as
// YYYY-MM-DD. ok is false when the date is missing or does not parse, in
// which case the record contributes to no date bucket or ranged view.
func (r *ImmunizationRecord) AdministeredDay() (string, bool) {
	raw := strings.TrimSpace(r.AdministeredDate)
	if len(raw) < 10 {
		return "", false
	}
	day := raw[:10]
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return "", false
	}
	return day, true
}

// DateConflict reports whether the expiration date precedes the administered
// date. Both dates are ISO YYYY-MM-DD, so lexicographic order equals
// chronological order; the comparison is skipped when either side is missing.
func (r *ImmunizationRecord) DateConflict() bool {
	exp := strings.TrimSpace(r.ExpirationDate)
	adm := strings.TrimSpace(r.AdministeredDate)
	if exp == "" || adm == "" {
		return false
	}
	return exp < adm
}
