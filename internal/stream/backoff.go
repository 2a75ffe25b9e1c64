package stream

import "time"

// Backoff реализует экспоненциальную задержку переподключения:
// base * 2^attempt с верхней границей cap
type Backoff struct {
	base    time.Duration
	cap     time.Duration
	attempt int
}

// NewBackoff создает backoff с заданными base и cap
func NewBackoff(base, cap time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if cap < base {
		cap = base
	}
	return &Backoff{base: base, cap: cap}
}

// Next возвращает задержку для текущей попытки и увеличивает счетчик
func (b *Backoff) Next() time.Duration {
	delay := b.base
	for i := 0; i < b.attempt; i++ {
		delay *= 2
		if delay >= b.cap {
			delay = b.cap
			break
		}
	}
	b.attempt++
	return delay
}

// Attempt возвращает число выполненных попыток с момента последнего Reset
func (b *Backoff) Attempt() int {
	return b.attempt
}

// Reset сбрасывает счетчик после успешного подключения
func (b *Backoff) Reset() {
	b.attempt = 0
}
