// Package stats derives running statistics from the accumulated alert
// history. Pure reads: nothing here mutates storage.
package stats

import (
	"sort"
	"strconv"
	"strings"

	"github.com/alertd/alertd/internal/alert"
)

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalDays          int            `json:"totalDays"`
	TotalAlerts        int            `json:"totalAlerts"`
	AlertsByLocation   map[string]int `json:"alertsByLocation"`
	AlertsByHour       map[int]int    `json:"alertsByHour"`
	MostActiveDay      *DayCount      `json:"mostActiveDay"`
	MostActiveLocation *string        `json:"mostActiveLocation"`
}

// Aggregate computes counts over the full store in one pass. Leaders use a
// strict > so the first date (ascending) or location (arrival order) to
// reach the maximum keeps the lead; ties are not re-resolved.
func Aggregate(store alert.Store) Stats {
	s := Stats{
		AlertsByLocation: map[string]int{},
		AlertsByHour:     map[int]int{},
	}

	dates := make([]string, 0, len(store))
	for d := range store {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var topLoc string
	topLocCount := 0
	for _, date := range dates {
		day := store[date]
		s.TotalDays++
		s.TotalAlerts += len(day)
		for _, a := range day {
			s.AlertsByLocation[a.Location]++
			if s.AlertsByLocation[a.Location] > topLocCount {
				topLocCount = s.AlertsByLocation[a.Location]
				topLoc = a.Location
			}
			if h, ok := hourOf(a.Time); ok {
				s.AlertsByHour[h]++
			}
		}
		if len(day) > 0 && (s.MostActiveDay == nil || len(day) > s.MostActiveDay.Count) {
			s.MostActiveDay = &DayCount{Date: date, Count: len(day)}
		}
	}
	if topLocCount > 0 {
		s.MostActiveLocation = &topLoc
	}
	return s
}

func hourOf(hhmm string) (int, bool) {
	i := strings.IndexByte(hhmm, ':')
	if i < 0 {
		return 0, false
	}
	h, err := strconv.Atoi(hhmm[:i])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}
