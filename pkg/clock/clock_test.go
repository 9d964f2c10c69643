package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 31, DaysIn(2025, time.January))
	assert.Equal(t, 28, DaysIn(2025, time.February))
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 30, DaysIn(2025, time.April))
	assert.Equal(t, 31, DaysIn(2025, time.December))
}

func TestDaysBetween(t *testing.T) {
	due := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(due, time.Date(2025, time.January, 5, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, 6, DaysBetween(due, time.Date(2025, time.January, 11, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, 40, DaysBetween(due, time.Date(2025, time.February, 14, 0, 0, 0, 0, time.UTC)))
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	due := Date(2025, time.March, 25)
	now := time.Date(2025, time.April, 4, 9, 0, 0, 0, paris)

	assert.Equal(t, 10, DaysBetween(due, now))
}

func TestDateOfKeepsLocalCalendarDay(t *testing.T) {
	ny := time.FixedZone("EST", -5*3600)
	late := time.Date(2025, time.January, 5, 23, 30, 0, 0, ny)

	assert.Equal(t, Date(2025, time.January, 5), DateOf(late))
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	c.AddDays(10)
	assert.Equal(t, time.Date(2025, time.January, 11, 9, 0, 0, 0, time.UTC), c.Now())

	c.Add(time.Hour)
	assert.Equal(t, 10, c.Now().Hour())
}
