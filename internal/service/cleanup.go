package service

import (
	"context"
	"time"

	"github.com/ignatzorin/hostel-backend/internal/goroutine"
	"github.com/ignatzorin/hostel-backend/internal/logger"
)

// CleanupOTPRepository описывает удаление устаревших одноразовых кодов.
type CleanupOTPRepository interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupSessionRepository описывает удаление истёкших сессий.
type CleanupSessionRepository interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Janitor периодически удаляет истёкшие одноразовые коды и сессии.
// Истёкший код и без того не проходит проверку, чистка лишь сдерживает
// рост таблиц.
type Janitor struct {
	otps      CleanupOTPRepository
	sessions  CleanupSessionRepository
	interval  time.Duration
	retention time.Duration
}

// NewJanitor создаёт фоновый уборщик.
func NewJanitor(otps CleanupOTPRepository, sessions CleanupSessionRepository, interval, retention time.Duration) *Janitor {
	return &Janitor{
		otps:      otps,
		sessions:  sessions,
		interval:  interval,
		retention: retention,
	}
}

// Start запускает цикл уборки в фоновой горутине до отмены контекста.
func (j *Janitor) Start(ctx context.Context) {
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.sweep(ctx)
			}
		}
	})
}

// sweep выполняет один проход уборки.
func (j *Janitor) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-j.retention)

	if removed, err := j.otps.DeleteExpiredBefore(ctx, cutoff); err != nil {
		logger.Errorf("janitor: не удалось удалить истёкшие коды: %v", err)
	} else if removed > 0 {
		logger.Infof("janitor: удалено истёкших кодов: %d", removed)
	}

	if j.sessions == nil {
		return
	}
	if removed, err := j.sessions.DeleteExpiredSessions(ctx); err != nil {
		logger.Errorf("janitor: не удалось удалить истёкшие сессии: %v", err)
	} else if removed > 0 {
		logger.Infof("janitor: удалено истёкших сессий: %d", removed)
	}
}
