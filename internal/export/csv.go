// Package export serializes a filtered record set to CSV. The export is a
// pure projection: raw fields plus the computed readiness score and the
// ledger's reviewed state at export time, nothing recomputed downstream.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/immunization-audit-server/internal/domain"
	"github.com/immunization-audit-server/internal/service"
)

// Header is the export column set, stable for downstream spreadsheet use.
var Header = []string{
	"doc_id",
	"patient_id",
	"vaccine_name",
	"quantity",
	"units",
	"ndc",
	"lot_number",
	"expiration_date",
	"administered_date",
	"status",
	"vfc_status",
	"funding_source",
	"readiness_score",
	"reviewed",
	"reviewed_timestamp",
}

// CSVExporter writes record projections with live classification and ledger
// state.
type CSVExporter struct {
	classifier *service.ClassifierService
	ledger     domain.ReviewLedger
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(classifier *service.ClassifierService, ledger domain.ReviewLedger) *CSVExporter {
	return &CSVExporter{classifier: classifier, ledger: ledger}
}

// Write serializes the record set to w, one row per record plus a header.
func (e *CSVExporter) Write(ctx context.Context, w io.Writer, records []domain.ImmunizationRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for i := range records {
		record := &records[i]

		reviewed := e.ledger.IsReviewed(ctx, record.DocID)
		reviewedTS := ""
		if ts, ok := e.ledger.ReviewedAt(ctx, record.DocID); ok {
			reviewedTS = ts.Format(time.RFC3339)
		}

		row := []string{
			record.DocID,
			record.PatientID,
			record.VaccineName,
			record.Quantity.String(),
			record.Units,
			record.NDC,
			record.LotNumber,
			record.ExpirationDate,
			record.AdministeredDate,
			record.Status,
			record.VFCStatus,
			record.FundingSource,
			strconv.Itoa(e.classifier.ReadinessScore(record)),
			strconv.FormatBool(reviewed),
			reviewedTS,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", record.DocID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
