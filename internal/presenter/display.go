package presenter

import (
	"fmt"
	"slices"
	"time"

	"github.com/i474232898/current-conditions/internal/weather"
)

// Row is one detail line of the display.
type Row struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	Missing bool   `json:"missing,omitempty"`
}

// DisplayState is everything the display shows. It is rebuilt from scratch for every
// successful refresh, so rows follow whatever labels the latest page had.
type DisplayState struct {
	Title     string        `json:"title"`
	Header    string        `json:"header"`
	Currently string        `json:"currently"`
	IconURL   string        `json:"iconUrl"`
	Icon      *weather.Icon `json:"icon,omitempty"`
	Rows      []Row         `json:"rows"`
	Clock     string        `json:"clock"`

	RefreshID string    `json:"refreshId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	Ready     bool      `json:"ready"`
	Stale     bool      `json:"stale"`
	LastError string    `json:"lastError,omitempty"`
	ErrorKind string    `json:"errorKind,omitempty"`
}

func (s DisplayState) clone() DisplayState {
	s.Rows = slices.Clone(s.Rows)
	return s
}

func buildState(title string, snap weather.WeatherSnapshot, icon *weather.Icon) DisplayState {
	rows := make([]Row, 0, snap.Details.Len())
	for _, f := range snap.Details.Fields() {
		rows = append(rows, Row{Label: f.Label, Value: f.Value, Missing: !f.Found})
	}

	return DisplayState{
		Title:  title,
		Header: "Current Conditions at " + snap.Header,
		Currently: fmt.Sprintf("%s %s / %s",
			snap.Summary.Condition, snap.Summary.TemperatureF, snap.Summary.TemperatureC),
		IconURL: snap.Summary.IconURL,
		Icon:    icon,
		Rows:    rows,
		Ready:   true,
	}
}
