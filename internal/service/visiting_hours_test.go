package service

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestVisitingHoursContains(t *testing.T) {
	hours, err := NewVisitingHours("08:00", "21:00")
	if err != nil {
		t.Fatalf("не удалось создать окно: %v", err)
	}

	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"до открытия", at(7, 59), false},
		{"начало включительно", at(8, 0), true},
		{"середина дня", at(14, 30), true},
		{"последняя минута", at(20, 59), true},
		{"конец не включается", at(21, 0), false},
		{"ночь", at(2, 15), false},
	}

	for _, tc := range cases {
		if got := hours.Contains(tc.t); got != tc.want {
			t.Errorf("%s: Contains(%s) = %v, ожидалось %v", tc.name, tc.t.Format("15:04"), got, tc.want)
		}
	}
}

func TestVisitingHoursOvernightWindow(t *testing.T) {
	hours, err := NewVisitingHours("20:00", "06:00")
	if err != nil {
		t.Fatalf("не удалось создать окно: %v", err)
	}

	cases := []struct {
		t    time.Time
		want bool
	}{
		{at(19, 59), false},
		{at(20, 0), true},
		{at(23, 45), true},
		{at(0, 0), true},
		{at(5, 59), true},
		{at(6, 0), false},
		{at(12, 0), false},
	}

	for _, tc := range cases {
		if got := hours.Contains(tc.t); got != tc.want {
			t.Errorf("Contains(%s) = %v, ожидалось %v", tc.t.Format("15:04"), got, tc.want)
		}
	}
}

func TestVisitingHoursRejectsBadFormat(t *testing.T) {
	if _, err := NewVisitingHours("8am", "21:00"); err == nil {
		t.Fatal("ожидалась ошибка разбора начала окна")
	}
	if _, err := NewVisitingHours("08:00", "25:70"); err == nil {
		t.Fatal("ожидалась ошибка разбора конца окна")
	}
}
