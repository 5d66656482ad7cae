package engine

import (
	"testing"

	"github.com/skmehra/ecotrace/lib/utils"
	"github.com/skmehra/ecotrace/models"
	"github.com/stretchr/testify/assert"
)

func entriesOn(dates ...string) []models.DailyEntry {
	entries := make([]models.DailyEntry, 0, len(dates))
	for _, date := range dates {
		entries = append(entries, models.DailyEntry{Date: date})
	}
	return entries
}

func daysAgo(n int) string {
	return utils.FormatDate(testNow.AddDate(0, 0, -n))
}

func TestComputeStreak(t *testing.T) {
	cases := []struct {
		name    string
		entries []models.DailyEntry
		want    int
	}{
		{"empty", nil, 0},
		{"single today", entriesOn(daysAgo(0)), 1},
		{"three consecutive ending today", entriesOn(daysAgo(0), daysAgo(1), daysAgo(2)), 3},
		{"anchor shifts to yesterday", entriesOn(daysAgo(1), daysAgo(2)), 2},
		{"gap at yesterday stops at one", entriesOn(daysAgo(0), daysAgo(2)), 1},
		{"gap two days back stops the walk", entriesOn(daysAgo(0), daysAgo(1), daysAgo(3), daysAgo(4)), 2},
		{"stale history only", entriesOn(daysAgo(5), daysAgo(6)), 0},
		{"unsorted input", entriesOn(daysAgo(2), daysAgo(0), daysAgo(1)), 3},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ComputeStreak(c.entries, testNow))
		})
	}
}
