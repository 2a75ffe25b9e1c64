package ratelimit

import (
	"testing"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

func newTestLimiter(start time.Time) (*Limiter, *time.Time) {
	current := start
	l := NewLimiter(0, 0, logger.New("error"))
	l.now = func() time.Time { return current }
	return l, &current
}

func TestCheck_DeniesOverLimit(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1700000000, 0))
	policy := Policy{Name: "api", Limit: 5, Window: time.Minute}

	for i := 0; i < 5; i++ {
		d := l.Check("10.0.0.1", policy)
		if !d.Allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
		if d.Remaining != 5-(i+1) {
			t.Fatalf("request %d: remaining = %d, want %d", i+1, d.Remaining, 5-(i+1))
		}
	}

	d := l.Check("10.0.0.1", policy)
	if d.Allowed {
		t.Fatal("6th request allowed, want denied")
	}
	if d.Remaining != 0 {
		t.Fatalf("denied remaining = %d, want 0", d.Remaining)
	}
	if d.ResetIn != time.Minute {
		t.Fatalf("denied resetIn = %v, want %v", d.ResetIn, time.Minute)
	}
}

func TestCheck_WindowSlides(t *testing.T) {
	l, now := newTestLimiter(time.Unix(1700000000, 0))
	policy := Policy{Name: "api", Limit: 2, Window: time.Minute}

	l.Check("client", policy)
	*now = now.Add(30 * time.Second)
	l.Check("client", policy)

	if d := l.Check("client", policy); d.Allowed {
		t.Fatal("request at limit allowed, want denied")
	}

	// Первый запрос выпадает из окна через 31 секунду
	*now = now.Add(31 * time.Second)
	d := l.Check("client", policy)
	if !d.Allowed {
		t.Fatal("request after window slide denied, want allowed")
	}
	if d.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", d.Remaining)
	}
}

func TestCheck_DeniedRequestNotRecorded(t *testing.T) {
	l, now := newTestLimiter(time.Unix(1700000000, 0))
	policy := Policy{Name: "api", Limit: 1, Window: time.Minute}

	l.Check("client", policy)

	// Шквал отказов не должен продлевать блокировку
	for i := 0; i < 10; i++ {
		*now = now.Add(5 * time.Second)
		if d := l.Check("client", policy); d.Allowed {
			t.Fatalf("request %d allowed inside window, want denied", i)
		}
	}

	*now = now.Add(11 * time.Second) // 61s после единственного учтенного запроса
	if d := l.Check("client", policy); !d.Allowed {
		t.Fatal("request after original window denied: denials were recorded")
	}
}

func TestCheck_IsolatesClientsAndPolicies(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1700000000, 0))
	apiPolicy := Policy{Name: "api", Limit: 1, Window: time.Minute}
	adminPolicy := Policy{Name: "admin", Limit: 1, Window: time.Minute}

	l.Check("alice", apiPolicy)

	if d := l.Check("alice", apiPolicy); d.Allowed {
		t.Fatal("same client same policy allowed, want denied")
	}
	if d := l.Check("bob", apiPolicy); !d.Allowed {
		t.Fatal("other client denied, want allowed")
	}
	if d := l.Check("alice", adminPolicy); !d.Allowed {
		t.Fatal("same client other policy denied, want allowed")
	}
}

func TestCheck_GlobalGuard(t *testing.T) {
	l := NewLimiter(1, 1, logger.New("error"))
	policy := Policy{Name: "api", Limit: 100, Window: time.Minute}

	if d := l.Check("client", policy); !d.Allowed {
		t.Fatal("first request denied by global guard")
	}
	// Burst исчерпан, следующий запрос режет глобальный предохранитель
	if d := l.Check("client", policy); d.Allowed {
		t.Fatal("second request allowed, want denied by global guard")
	}
}

func TestSweep_RemovesIdleBuckets(t *testing.T) {
	l, now := newTestLimiter(time.Unix(1700000000, 0))
	policy := Policy{Name: "api", Limit: 5, Window: time.Minute}

	l.Check("idle-client", policy)
	*now = now.Add(10 * time.Minute)
	l.Check("active-client", policy)

	if got := l.BucketCount(); got != 2 {
		t.Fatalf("BucketCount() = %d, want 2", got)
	}

	l.sweep(5 * time.Minute)

	if got := l.BucketCount(); got != 1 {
		t.Fatalf("BucketCount() after sweep = %d, want 1", got)
	}
	if d := l.Check("active-client", policy); !d.Allowed {
		t.Fatal("active client denied after sweep")
	}
}
