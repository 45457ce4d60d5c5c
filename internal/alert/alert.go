package alert

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Alert is one normalized occurrence record as persisted and served.
type Alert struct {
	ID        string `json:"id"`
	Location  string `json:"location"`
	Time      string `json:"time"`      // HH:MM
	Timestamp string `json:"timestamp"` // RFC3339
	Date      string `json:"date"`      // YYYY-MM-DD
}

// Store maps a date ("YYYY-MM-DD") to that day's alerts in arrival order.
type Store map[string][]Alert

// Candidate is a normalized upstream record that has not been deduplicated yet.
type Candidate struct {
	ID       string
	Location string
	At       time.Time
}

// Normalized derives the persisted form. Date and time are taken in the
// server's local zone at the moment of ingestion.
func (c Candidate) Normalized() Alert {
	t := c.At.Local()
	return Alert{
		ID:        c.ID,
		Location:  c.Location,
		Time:      t.Format("15:04"),
		Timestamp: t.Format(time.RFC3339),
		Date:      t.Format("2006-01-02"),
	}
}

// remove diacritics
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	res, _, _ := transform.String(t, s)
	return res
}

// CanonicalLocation folds a location name to a stable comparison key:
// lowercase, accents stripped, separators and whitespace removed. Upstream
// sources spell the same place inconsistently; window dedup and synthesized
// identity keys both compare on this form while the stored alert keeps the
// original spelling.
func CanonicalLocation(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = stripAccents(s)
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// SynthesizeID builds the identity key for records without a native id.
// The millis suffix is what the retention sweeper parses for age.
func SynthesizeID(location string, at time.Time) string {
	return fmt.Sprintf("%s_%d", CanonicalLocation(location), at.UnixMilli())
}
