package service

import (
	"fmt"
	"time"
)

// VisitingHours — окно разрешённых часов посещений в локальном времени сервера.
// Поддерживается и окно через полночь (например 20:00 — 06:00).
type VisitingHours struct {
	startMinutes int
	endMinutes   int
}

// NewVisitingHours разбирает границы окна в формате "15:04".
func NewVisitingHours(start, end string) (VisitingHours, error) {
	startT, err := time.Parse("15:04", start)
	if err != nil {
		return VisitingHours{}, fmt.Errorf("visiting hours: некорректное начало окна %q: %w", start, err)
	}
	endT, err := time.Parse("15:04", end)
	if err != nil {
		return VisitingHours{}, fmt.Errorf("visiting hours: некорректный конец окна %q: %w", end, err)
	}

	return VisitingHours{
		startMinutes: startT.Hour()*60 + startT.Minute(),
		endMinutes:   endT.Hour()*60 + endT.Minute(),
	}, nil
}

// Contains сообщает, попадает ли момент времени в окно посещений.
// Начало включительно, конец — нет.
func (h VisitingHours) Contains(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()

	if h.startMinutes <= h.endMinutes {
		return minutes >= h.startMinutes && minutes < h.endMinutes
	}
	// Окно через полночь.
	return minutes >= h.startMinutes || minutes < h.endMinutes
}
