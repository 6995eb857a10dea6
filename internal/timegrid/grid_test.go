package timegrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shriyanssahoo/Byte-Me/internal/models"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

func TestGridDefaultDayLayout(t *testing.T) {
	g, err := New(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 54, g.SlotsPerDay())
	assert.Equal(t, 9, g.SessionSlots(models.SessionLecture))
	assert.Equal(t, 6, g.SessionSlots(models.SessionTutorial))
	assert.Equal(t, 12, g.SessionSlots(models.SessionPractical))
}

func TestGridClockConversionRoundTrip(t *testing.T) {
	g, err := New(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "09:00", g.SlotClock(0))
	assert.Equal(t, "12:30", g.SlotClock(21))
	assert.Equal(t, 21, g.ClockSlot("12:30"))
	assert.Equal(t, -1, g.ClockSlot("18:30"))
	assert.Equal(t, -1, g.ClockSlot("bogus"))
}

func TestGridLunchWindowsStaggeredBySemester(t *testing.T) {
	g, err := New(DefaultConfig())
	require.NoError(t, err)

	sem1, ok := g.LunchWindow(1)
	require.True(t, ok)
	assert.Equal(t, g.ClockSlot("12:30"), sem1.Start)
	assert.Equal(t, 3, sem1.Length)

	sem3, ok := g.LunchWindow(3)
	require.True(t, ok)
	assert.Equal(t, g.ClockSlot("13:00"), sem3.Start)

	sem5, ok := g.LunchWindow(5)
	require.True(t, ok)
	assert.Equal(t, g.ClockSlot("13:30"), sem5.Start)

	sem7, ok := g.LunchWindow(7)
	require.True(t, ok)
	assert.Equal(t, sem1.Start, sem7.Start)

	_, ok = g.LunchWindow(2)
	assert.False(t, ok, "even semesters have no staggered lunch window")
}

func TestGridBreakSpacing(t *testing.T) {
	g, err := New(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 1, g.BreakSlots(models.ResourceSection))
	assert.Equal(t, 3, g.BreakSlots(models.ResourceFaculty))
	assert.Equal(t, 0, g.BreakSlots(models.ResourceRoom))
}

func TestGridRejectsInvalidConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"zero slot duration":  func(c *Config) { c.SlotMinutes = 0 },
		"end before start":    func(c *Config) { c.DayEnd = "08:00" },
		"ragged day length":   func(c *Config) { c.DayEnd = "18:05" },
		"bad lecture length":  func(c *Config) { c.LectureMinutes = 95 },
		"bad lunch start":     func(c *Config) { c.LunchStarts = map[int]string{1: "25:99"} },
		"lunch past day end":  func(c *Config) { c.LunchStarts = map[int]string{1: "17:50"} },
		"malformed day start": func(c *Config) { c.DayStart = "nine" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidConfig.Code))
		})
	}
}

func TestSlotRangeOverlap(t *testing.T) {
	a := models.SlotRange{Start: 0, Length: 9}
	b := models.SlotRange{Start: 8, Length: 6}
	c := models.SlotRange{Start: 9, Length: 6}

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c))
	assert.False(t, c.Overlaps(a))
}
