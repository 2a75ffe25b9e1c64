package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// Policy описывает правило лимитирования для группы endpoint'ов
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision - результат проверки одного запроса
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

type bucket struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// Limiter - sliding-window лимитер по паре (client, policy) плюс
// глобальный token-bucket предохранитель на процесс.
// Учет ведется по фактическим timestamp'ам запросов, без аппроксимации
// фиксированными окнами.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	global *rate.Limiter
	logger *logger.Logger
	now    func() time.Time
}

// NewLimiter создает лимитер. globalRPS <= 0 отключает глобальный предохранитель.
func NewLimiter(globalRPS float64, globalBurst int, log *logger.Logger) *Limiter {
	var global *rate.Limiter
	if globalRPS > 0 {
		if globalBurst <= 0 {
			globalBurst = int(globalRPS)
		}
		global = rate.NewLimiter(rate.Limit(globalRPS), globalBurst)
	}

	return &Limiter{
		buckets: make(map[string]*bucket),
		global:  global,
		logger:  log,
		now:     time.Now,
	}
}

// Check регистрирует запрос клиента в рамках policy и возвращает решение.
// Отклоненный запрос не записывается в окно: отказ не продлевает блокировку.
func (l *Limiter) Check(clientID string, policy Policy) Decision {
	now := l.now()

	if l.global != nil && !l.global.Allow() {
		return Decision{Allowed: false, Limit: policy.Limit, Remaining: 0, ResetIn: time.Second}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := clientID + "|" + policy.Name
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}
	b.lastSeen = now

	// Вычищаем timestamp'ы старше окна
	cutoff := now.Add(-policy.Window)
	kept := b.timestamps[:0]
	for _, ts := range b.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.timestamps = kept

	if len(b.timestamps) >= policy.Limit {
		oldest := b.timestamps[0]
		resetIn := oldest.Add(policy.Window).Sub(now)
		if resetIn < 0 {
			resetIn = 0
		}
		return Decision{Allowed: false, Limit: policy.Limit, Remaining: 0, ResetIn: resetIn}
	}

	b.timestamps = append(b.timestamps, now)
	resetIn := b.timestamps[0].Add(policy.Window).Sub(now)
	return Decision{
		Allowed:   true,
		Limit:     policy.Limit,
		Remaining: policy.Limit - len(b.timestamps),
		ResetIn:   resetIn,
	}
}

// StartSweeper запускает фоновую чистку бездействующих buckets,
// чтобы память не росла с числом уникальных клиентов.
// Bucket удаляется после maxIdle без запросов.
func (l *Limiter) StartSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep(maxIdle)
			}
		}
	}()
}

func (l *Limiter) sweep(maxIdle time.Duration) {
	cutoff := l.now().Add(-maxIdle)

	l.mu.Lock()
	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	remaining := len(l.buckets)
	l.mu.Unlock()

	if removed > 0 {
		l.logger.Debug("Swept idle rate limit buckets", "removed", removed, "remaining", remaining)
	}
}

// BucketCount возвращает текущее число активных buckets
func (l *Limiter) BucketCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
