package progress

import (
	"errors"
	"time"
)

var ErrMeasurementNotFound = errors.New("measurement not found")

// Measurement is a dated snapshot of a client's body metrics. Each
// metric is independently optional (nil = not recorded that day).
// Measurements are append-only: there is no update or delete.
type Measurement struct {
	ID         int       `json:"id"`
	ClientID   int       `json:"clientId"`
	BodyWeight *float64  `json:"bodyWeight,omitempty"` // kg
	ChestSize  *float64  `json:"chestSize,omitempty"`  // cm
	WaistSize  *float64  `json:"waistSize,omitempty"`  // cm
	BicepsSize *float64  `json:"bicepsSize,omitempty"` // cm
	ThighSize  *float64  `json:"thighSize,omitempty"`  // cm
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HasMetrics reports whether at least one metric was recorded; a
// measurement without any is rejected at add time.
func (m Measurement) HasMetrics() bool {
	return m.BodyWeight != nil ||
		m.ChestSize != nil ||
		m.WaistSize != nil ||
		m.BicepsSize != nil ||
		m.ThighSize != nil
}

// Metric returns the value of the named dimension, or nil when not
// recorded.
func (m Measurement) Metric(dimension string) *float64 {
	switch dimension {
	case DimensionBodyWeight:
		return m.BodyWeight
	case DimensionChestSize:
		return m.ChestSize
	case DimensionWaistSize:
		return m.WaistSize
	case DimensionBicepsSize:
		return m.BicepsSize
	case DimensionThighSize:
		return m.ThighSize
	}
	return nil
}

// Stat is an ephemeral derived statistic: the current value of a
// metric and its delta versus the oldest measurement in the fetched
// window. Never persisted, recomputed on every read.
type Stat struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
	Unit   string  `json:"unit"`
}
