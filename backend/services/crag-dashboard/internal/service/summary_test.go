package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cragwatch/backend/services/crag-dashboard/internal/models"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := map[int]models.Activity{
		-3: models.ActivityQuiet,
		0:  models.ActivityQuiet,
		5:  models.ActivityQuiet,
		6:  models.ActivityModerate,
		10: models.ActivityModerate,
		11: models.ActivityBusy,
		80: models.ActivityBusy,
	}
	for count, want := range cases {
		assert.Equal(t, want, Classify(count), "count %d", count)
	}
}

func TestClassifyIsNonDecreasing(t *testing.T) {
	rank := map[models.Activity]int{
		models.ActivityQuiet:    0,
		models.ActivityModerate: 1,
		models.ActivityBusy:     2,
	}
	prev := rank[Classify(0)]
	for n := 1; n <= 50; n++ {
		cur := rank[Classify(n)]
		assert.GreaterOrEqual(t, cur, prev, "count %d", n)
		prev = cur
	}
}

func TestDeriveSummariesPreservesOrderAndLength(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	walls := []models.WallState{
		{WallID: "the_cave", DeviceCount: 2, LatestReadingTimestamp: ts},
		{WallID: "west-face", DeviceCount: 14, LatestReadingTimestamp: ts.Add(-time.Minute)},
		{WallID: "slab", DeviceCount: 7, LatestReadingTimestamp: ts.Add(-time.Hour)},
		{WallID: "broken", DeviceCount: -1},
	}

	got := DeriveSummaries(walls)

	assert.Len(t, got, len(walls))
	assert.Equal(t, models.WallSummary{
		WallID:                 "the_cave",
		DisplayName:            "The Cave",
		DeviceCount:            2,
		LatestReadingTimestamp: ts,
		Activity:               models.ActivityQuiet,
	}, got[0])
	assert.Equal(t, "west-face", got[1].WallID)
	assert.Equal(t, "West Face", got[1].DisplayName)
	assert.Equal(t, models.ActivityBusy, got[1].Activity)
	assert.Equal(t, ts.Add(-time.Minute), got[1].LatestReadingTimestamp)
	assert.Equal(t, models.ActivityModerate, got[2].Activity)
	assert.Equal(t, 0, got[3].DeviceCount)
	assert.Equal(t, models.ActivityQuiet, got[3].Activity)
}

func TestDeriveSummariesEmpty(t *testing.T) {
	got := DeriveSummaries(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"west_face":       "West Face",
		"north-face":      "North Face",
		"boulder_2b":      "Boulder 2b",
		"mixed_Case-wall": "Mixed Case Wall",
		"kids__corner":    "Kids  Corner",
		"élan_wall":       "Élan Wall",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, DisplayName(in), "input %q", in)
	}
}
