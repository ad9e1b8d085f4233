package demandcast

import (
	"time"

	"github.com/demandcast/demandcast/comeback"
	"github.com/demandcast/demandcast/forecast"
	"github.com/demandcast/demandcast/seasonality"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Report bundles the engine outputs for one entity into a serializable
// snapshot for downstream consumers.
type Report struct {
	ID          uuid.UUID `json:"id"`
	Entity      string    `json:"entity"`
	GeneratedAt time.Time `json:"generated_at"`

	Training  *forecast.TrainingResult `json:"training,omitempty"`
	Forecast  *forecast.Result         `json:"forecast,omitempty"`
	Seasonal  *seasonality.Profile     `json:"seasonal,omitempty"`
	NextEvent *comeback.Prediction     `json:"next_event,omitempty"`
}

// NewReport assembles a report from the engine's current state plus the
// given forecast and event prediction.
func (e *Engine) NewReport(entity string, fc *forecast.Result, next *comeback.Prediction) *Report {
	return &Report{
		ID:          uuid.New(),
		Entity:      entity,
		GeneratedAt: time.Now(),
		Training:    e.lastFit,
		Forecast:    fc,
		Seasonal:    e.profile,
		NextEvent:   next,
	}
}

// Marshal serializes the report for storage and transport.
func (r *Report) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalReport parses a serialized report.
func UnmarshalReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
