package model

import (
	"fmt"
	"time"
)

// EmailItem is the normalized view of a single unread message: the decoded
// subject and a short snippet of the body. The snippet derivation is lossy;
// the original body cannot be reconstructed from it.
type EmailItem struct {
	Subject string
	Snippet string
}

// Headline is a single news story as returned by the headlines API.
// Title and URL are always non-empty; ordering follows the API's ranking.
type Headline struct {
	Title string
	URL   string
}

// WeatherSummary aggregates the forecast samples for one day into a single
// record.
type WeatherSummary struct {
	// Temperature is the mean temperature in degrees Celsius.
	Temperature float64

	// Condition is the most frequent textual condition label.
	Condition string

	// ChanceOfRain is the maximum probability of precipitation in [0, 1].
	ChanceOfRain float64
}

// String renders the summary as a single human-readable line, e.g.
// "11.0°C, clear sky, 30% chance of rain".
func (w WeatherSummary) String() string {
	return fmt.Sprintf(
		"%.1f°C, %s, %.0f%% chance of rain",
		w.Temperature, w.Condition, w.ChanceOfRain*100,
	)
}

// DigestDocument holds the parallel text and HTML renderings of one digest.
// Both are produced from the same input snapshot and are byte-reproducible
// given identical inputs.
type DigestDocument struct {
	Text string
	HTML string
}

// Run status values recorded for each pipeline invocation.
const (
	RunStatusSent   = "sent"
	RunStatusFailed = "failed"
)

// RunRecord is the persisted outcome of a single digest pipeline run.
type RunRecord struct {
	ID            string    `db:"id"`
	StartedAt     time.Time `db:"started_at"`
	FinishedAt    time.Time `db:"finished_at"`
	Status        string    `db:"status"`
	MailCount     int       `db:"mail_count"`
	HeadlineCount int       `db:"headline_count"`
	WeatherText   string    `db:"weather_text"`
	TextBody      string    `db:"text_body"`
	HTMLBody      string    `db:"html_body"`
	Error         string    `db:"error"`
}
