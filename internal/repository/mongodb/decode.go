package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

var (
	summaryFields = []string{"_id", "date", "total_units_produced", "total_length_produced", "final_length", "yarn_required", "total_yarn_available", "remaining_yarn"}
	stockFields   = []string{"date", "loom_id", "remaining_unit_stock"}
)

// DecodeSummary turns a stored document into a summary, rejecting documents
// that lack the fields carry-forward depends on.
func DecodeSummary(index int, doc bson.Raw) (models.PeriodSummary, error) {
	var s models.PeriodSummary
	if err := decode(models.SummaryLog, index, doc, summaryFields, &s); err != nil {
		return models.PeriodSummary{}, err
	}
	s.Date = s.Date.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

// DecodeStock turns a stored document into a loom stock record.
func DecodeStock(index int, doc bson.Raw) (models.LoomStockRecord, error) {
	var r models.LoomStockRecord
	if err := decode(models.StockLog, index, doc, stockFields, &r); err != nil {
		return models.LoomStockRecord{}, err
	}
	r.Date = r.Date.UTC()
	return r, nil
}

func decode(log string, index int, doc bson.Raw, required []string, out interface{}) error {
	for _, field := range required {
		if _, err := doc.LookupErr(field); err != nil {
			return &models.DataIntegrityError{Log: log, Index: index, Reason: "missing field " + field, Err: err}
		}
	}
	if err := bson.Unmarshal(doc, out); err != nil {
		return &models.DataIntegrityError{Log: log, Index: index, Reason: "undecodable document", Err: err}
	}
	return nil
}
