package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/dto"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/port"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/service"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

type fakeChannel struct {
	name string
	ok   bool

	mu    sync.Mutex
	calls int
}

func (c *fakeChannel) Notify(ctx context.Context, assessment *dto.AssessmentDTO) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.ok
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func assessmentAt(level valueobject.RiskLevel, score float64) *entity.Assessment {
	return &entity.Assessment{
		GeneratedAt:  time.Now(),
		OverallScore: score,
		OverallLevel: level,
	}
}

func newTestDispatcher(channels []port.NotificationChannel, start time.Time) (*Dispatcher, *time.Time) {
	current := start
	d := NewDispatcher(service.NewNotificationPolicy(30*time.Minute), channels, logger.New("error"))
	d.now = func() time.Time { return current }
	return d, &current
}

func TestMaybeNotify_BelowWarningSuppressed(t *testing.T) {
	channel := &fakeChannel{name: "webhook", ok: true}
	d, _ := newTestDispatcher([]port.NotificationChannel{channel}, time.Unix(1700000000, 0))

	if d.MaybeNotify(context.Background(), assessmentAt(valueobject.LevelCaution, 45)) {
		t.Fatal("MaybeNotify() = true for caution level, want false")
	}
	if channel.callCount() != 0 {
		t.Fatalf("channel called %d times, want 0", channel.callCount())
	}
}

func TestMaybeNotify_CooldownAndEscalation(t *testing.T) {
	channel := &fakeChannel{name: "webhook", ok: true}
	d, now := newTestDispatcher([]port.NotificationChannel{channel}, time.Unix(1700000000, 0))

	// Первая отправка проходит
	if !d.MaybeNotify(context.Background(), assessmentAt(valueobject.LevelWarning, 65)) {
		t.Fatal("first MaybeNotify() = false, want true")
	}

	// Повтор внутри cooldown подавляется
	*now = now.Add(10 * time.Minute)
	if d.MaybeNotify(context.Background(), assessmentAt(valueobject.LevelWarning, 66)) {
		t.Fatal("MaybeNotify() inside cooldown = true, want false")
	}

	// Эскалация до danger обходит cooldown
	*now = now.Add(time.Minute)
	if !d.MaybeNotify(context.Background(), assessmentAt(valueobject.LevelDanger, 85)) {
		t.Fatal("MaybeNotify() on escalation = false, want true")
	}

	if channel.callCount() != 2 {
		t.Fatalf("channel called %d times, want 2", channel.callCount())
	}
}

func TestMaybeNotify_FailedDeliveryKeepsCooldownOpen(t *testing.T) {
	channel := &fakeChannel{name: "webhook", ok: false}
	d, now := newTestDispatcher([]port.NotificationChannel{channel}, time.Unix(1700000000, 0))

	if d.MaybeNotify(context.Background(), assessmentAt(valueobject.LevelWarning, 65)) {
		t.Fatal("MaybeNotify() = true with failing channel, want false")
	}

	// Провальная рассылка не съела окно: следующая попытка сразу разрешена
	*now = now.Add(time.Second)
	channel.ok = true
	if !d.MaybeNotify(context.Background(), assessmentAt(valueobject.LevelWarning, 65)) {
		t.Fatal("retry after failed delivery = false, want true")
	}
}

func TestMaybeNotify_AnyChannelSuccessCounts(t *testing.T) {
	failing := &fakeChannel{name: "webhook-a", ok: false}
	working := &fakeChannel{name: "webhook-b", ok: true}
	d, _ := newTestDispatcher([]port.NotificationChannel{failing, working}, time.Unix(1700000000, 0))

	if !d.MaybeNotify(context.Background(), assessmentAt(valueobject.LevelDanger, 85)) {
		t.Fatal("MaybeNotify() = false, want true when one channel delivers")
	}
	if failing.callCount() != 1 || working.callCount() != 1 {
		t.Fatal("both channels must be attempted")
	}
}

func TestMaybeNotify_NoChannels(t *testing.T) {
	d, _ := newTestDispatcher(nil, time.Unix(1700000000, 0))

	if d.MaybeNotify(context.Background(), assessmentAt(valueobject.LevelDanger, 90)) {
		t.Fatal("MaybeNotify() = true without channels, want false")
	}
}
