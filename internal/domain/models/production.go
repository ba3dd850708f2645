package models

import "time"

// LoomEntry is one loom's raw production for the period.
type LoomEntry struct {
	LoomID          int       `json:"loom_id" yaml:"loom_id"`
	PriorUnitStock  float64   `json:"prior_unit_stock" yaml:"prior_unit_stock"`
	AddedCapacity   float64   `json:"added_capacity" yaml:"added_capacity"`
	ProducedLengths []float64 `json:"produced_lengths" yaml:"produced_lengths"`
}

// EffectivePriorStock is the prior unit stock topped up by a new beam.
func (e LoomEntry) EffectivePriorStock() float64 {
	return e.PriorUnitStock + e.AddedCapacity
}

// RemainingUnitStock may go negative when more units were woven than declared.
func (e LoomEntry) RemainingUnitStock() float64 {
	return e.EffectivePriorStock() - float64(len(e.ProducedLengths))
}

// PeriodInputs is the fully resolved input of one weekly calculation.
type PeriodInputs struct {
	PreviousYarnStock float64     `json:"previous_yarn_stock"`
	NewYarnDelivered  float64     `json:"new_yarn_delivered"`
	Looms             []LoomEntry `json:"looms"`
}

// PeriodSummary is the persisted weekly result. Values keep full precision.
type PeriodSummary struct {
	ID                  string    `bson:"_id" json:"id"`
	Seq                 int64     `bson:"seq" json:"-"`
	Date                time.Time `bson:"date" json:"date"`
	TotalUnitsProduced  int       `bson:"total_units_produced" json:"total_units_produced"`
	TotalLengthProduced float64   `bson:"total_length_produced" json:"total_length_produced"`
	WastageFraction     float64   `bson:"wastage_fraction" json:"wastage_fraction"`
	FinalLength         float64   `bson:"final_length" json:"final_length"`
	YarnPerLength       float64   `bson:"yarn_per_length" json:"yarn_per_length"`
	YarnRequired        float64   `bson:"yarn_required" json:"yarn_required"`
	PreviousYarnStock   float64   `bson:"previous_yarn_stock" json:"previous_yarn_stock"`
	NewYarnDelivered    float64   `bson:"new_yarn_delivered" json:"new_yarn_delivered"`
	TotalYarnAvailable  float64   `bson:"total_yarn_available" json:"total_yarn_available"`
	RemainingYarn       float64   `bson:"remaining_yarn" json:"remaining_yarn"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
}

// LoomStockRecord seeds a loom's prior unit stock for the next period.
type LoomStockRecord struct {
	PeriodID           string    `bson:"period_id" json:"period_id"`
	Seq                int64     `bson:"seq" json:"-"`
	Date               time.Time `bson:"date" json:"date"`
	LoomID             int       `bson:"loom_id" json:"loom_id"`
	RemainingUnitStock float64   `bson:"remaining_unit_stock" json:"remaining_unit_stock"`
}

// CarryForward is the ending state of the previous period.
type CarryForward struct {
	PreviousYarnStock float64         `json:"previous_yarn_stock"`
	PerLoomStock      map[int]float64 `json:"per_loom_stock"`
	// Date is the date of the stock slice used, zero when the log was empty.
	Date time.Time `json:"date,omitempty"`
}

// PriorStock returns the carried unit stock of a loom, 0 when unknown.
func (c CarryForward) PriorStock(loomID int) float64 {
	return c.PerLoomStock[loomID]
}

// LoomForm is the operator's raw entry for one loom.
type LoomForm struct {
	LoomID int `json:"loom_id" yaml:"loom_id" binding:"required,min=1"`
	// PriorUnitStock falls back to the carried stock when nil.
	PriorUnitStock  *float64  `json:"prior_unit_stock,omitempty" yaml:"prior_unit_stock,omitempty"`
	AddedCapacity   float64   `json:"added_capacity" yaml:"added_capacity"`
	ProducedLengths []float64 `json:"produced_lengths,omitempty" yaml:"produced_lengths,omitempty"`
	// LengthsText is the comma separated form, e.g. "80, 90, 75".
	LengthsText string `json:"lengths_text,omitempty" yaml:"lengths_text,omitempty"`
}

// PeriodForm is the operator's raw entry for one week.
type PeriodForm struct {
	// PreviousYarnStock falls back to the carried yarn stock when nil.
	PreviousYarnStock *float64   `json:"previous_yarn_stock,omitempty" yaml:"previous_yarn_stock,omitempty"`
	NewYarnDelivered  float64    `json:"new_yarn_delivered" yaml:"new_yarn_delivered"`
	Looms             []LoomForm `json:"looms" yaml:"looms" binding:"dive"`
}

// ShortfallKind tags an informational negative balance.
type ShortfallKind string

const (
	ShortfallLoomStock ShortfallKind = "loom_stock"
	ShortfallYarn      ShortfallKind = "yarn"
)

// Shortfall flags a negative balance. It never blocks a calculation.
type Shortfall struct {
	Kind   ShortfallKind `json:"kind"`
	LoomID int           `json:"loom_id,omitempty"`
	Amount float64       `json:"amount"`
}
