package service

import (
	"fmt"
	"time"
)

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	units := cents / 100
	s := fmt.Sprintf("%d", units)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return fmt.Sprintf("%s%s.%02d", sign, s, cents%100)
}

func formatPeriod(year, month int) string {
	return fmt.Sprintf("%s %d", time.Month(month).String(), year)
}

func formatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}
