package domain

// FieldGuidance describes a tracked field for the guidance panel: what it is
// called, how severe its absence is, what the gap costs, and how to fix it.
// The table is configuration data, loaded once and immutable for the session.
type FieldGuidance struct {
	Field  string `json:"field"`
	Label  string `json:"label"`
	Tier   Tier   `json:"tier"`
	Impact string `json:"impact"`
	Fix    string `json:"fix"`
}

// guidanceCatalog maps a record field name to its guidance entry.
var guidanceCatalog = map[string]FieldGuidance{
	"vfc_status": {
		Field:  "vfc_status",
		Label:  "VFC Eligibility",
		Tier:   TierHigh,
		Impact: "Doses cannot be attributed to the correct funding program; VFC compliance reporting is blocked.",
		Fix:    "Confirm the patient's VFC eligibility screening and record the eligibility code.",
	},
	"funding_source": {
		Field:  "funding_source",
		Label:  "Funding Source",
		Tier:   TierHigh,
		Impact: "Inventory reconciliation cannot separate public from private stock.",
		Fix:    "Record whether the administered dose came from public or private inventory.",
	},
	"race": {
		Field:  "race",
		Label:  "Race",
		Tier:   TierMedium,
		Impact: "Equity reporting and coverage-gap analysis is skewed by undocumented demographics.",
		Fix:    "Capture race at intake or backfill from the patient chart.",
	},
	"ethnicity": {
		Field:  "ethnicity",
		Label:  "Ethnicity",
		Tier:   TierMedium,
		Impact: "Equity reporting and coverage-gap analysis is skewed by undocumented demographics.",
		Fix:    "Capture ethnicity at intake or backfill from the patient chart.",
	},
	"mobile": {
		Field:  "mobile",
		Label:  "Mobile Phone",
		Tier:   TierLow,
		Impact: "Reminder/recall outreach cannot reach the patient by text or call.",
		Fix:    "Verify a current mobile number at the next encounter.",
	},
	"email": {
		Field:  "email",
		Label:  "Email",
		Tier:   TierLow,
		Impact: "Reminder/recall outreach cannot reach the patient by email.",
		Fix:    "Verify a current email address at the next encounter.",
	},
	"lot_number": {
		Field:  "lot_number",
		Label:  "Lot Number",
		Tier:   TierHigh,
		Impact: "Dose cannot be traced during a recall and decrements no inventory lot.",
		Fix:    "Transcribe the lot number from the vial or scan the 2D barcode.",
	},
	"ndc": {
		Field:  "ndc",
		Label:  "NDC",
		Tier:   TierHigh,
		Impact: "Product identification is ambiguous; CVX/NDC crosswalks cannot be applied.",
		Fix:    "Record the NDC from the packaging or select the product from the formulary list.",
	},
	"expiration_date": {
		Field:  "expiration_date",
		Label:  "Expiration Date",
		Tier:   TierMedium,
		Impact: "Expired-dose administration cannot be ruled out during audits.",
		Fix:    "Record the expiration date printed on the vial.",
	},
}

// GuidanceFor looks up the guidance entry for a field name.
func GuidanceFor(field string) (FieldGuidance, bool) {
	g, ok := guidanceCatalog[field]
	return g, ok
}

// GuidanceCatalog returns a copy of every guidance entry, for bulk display.
func GuidanceCatalog() []FieldGuidance {
	out := make([]FieldGuidance, 0, len(guidanceCatalog))
	for _, g := range guidanceCatalog {
		out = append(out, g)
	}
	return out
}
