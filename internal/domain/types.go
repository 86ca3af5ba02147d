package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location is a geolocation snapshot. Timestamp is the capture instant in
// epoch milliseconds.
type Location struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// MaterialUsage holds the consumables fitted during one installation.
// Unit-counted items are integers, cable lengths are metres.
type MaterialUsage struct {
	CosseElectrique  int     `json:"cosseElectrique" validate:"gte=0"`
	EmboutsASertir   int     `json:"emboutsASertir" validate:"gte=0"`
	CosseTubulaire   int     `json:"cosseTubulaire" validate:"gte=0"`
	CollierDeSerrage int     `json:"collierDeSerrage" validate:"gte=0"`
	Cable25mm        float64 `json:"cable25mm" validate:"gte=0"`
	Cable16mm        float64 `json:"cable16mm" validate:"gte=0"`
	Cable10mm        float64 `json:"cable10mm" validate:"gte=0"`
}

// TotalUnits sums the unit-counted items.
func (m MaterialUsage) TotalUnits() int {
	return m.CosseElectrique + m.EmboutsASertir + m.CosseTubulaire + m.CollierDeSerrage
}

// TotalCable sums the three cable gauges without float drift.
func (m MaterialUsage) TotalCable() decimal.Decimal {
	return decimal.NewFromFloat(m.Cable25mm).
		Add(decimal.NewFromFloat(m.Cable16mm)).
		Add(decimal.NewFromFloat(m.Cable10mm))
}

// Form is the validated text input of the installation form.
type Form struct {
	CoffretName string `json:"coffretName" validate:"required"`
	CoffretCode string `json:"coffretCode" validate:"required"`
	Zone        string `json:"zone" validate:"required,zone"`
	DeviceEUI   string `json:"deviceEUI" validate:"required"`
	AppEUI      string `json:"appEUI" validate:"required"`
	AppKey      string `json:"appKey" validate:"required"`
}

// Installation is one submitted record. Location, MaterialUsed and PhotoNames
// are absent on records written before those fields existed.
type Installation struct {
	ID           string         `json:"id"`
	CoffretName  string         `json:"coffretName"`
	CoffretCode  string         `json:"coffretCode"`
	Zone         string         `json:"zone"`
	DeviceEUI    string         `json:"deviceEUI"`
	AppEUI       string         `json:"appEUI"`
	AppKey       string         `json:"appKey"`
	Photos       []string       `json:"photos"`
	PhotoNames   []string       `json:"photoNames,omitempty"`
	Location     *Location      `json:"location,omitempty"`
	MaterialUsed *MaterialUsage `json:"materialUsed,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	UserID       string         `json:"userId"`
}
