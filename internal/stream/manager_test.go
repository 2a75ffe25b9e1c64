package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/dto"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/usecase"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

type fakeProvider struct {
	assessment *entity.Assessment
	latest     *entity.Assessment
	err        error
	calls      int
}

func (p *fakeProvider) Execute(ctx context.Context) (*entity.Assessment, bool, error) {
	p.calls++
	if p.err != nil {
		return nil, false, p.err
	}
	return p.assessment, false, nil
}

func (p *fakeProvider) Latest() *entity.Assessment {
	return p.latest
}

func testAssessment(score float64) *entity.Assessment {
	return &entity.Assessment{
		GeneratedAt:  time.Now(),
		OverallScore: score,
		OverallLevel: valueobject.DefaultBands().LevelFor(score),
	}
}

func waitEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream event")
		return Event{}
	}
}

func TestSubscribe_ConnectedThenAssessment(t *testing.T) {
	provider := &fakeProvider{assessment: testAssessment(72.5)}
	m := NewManager(provider, ManagerConfig{
		UpdateInterval:    time.Hour,
		HeartbeatInterval: time.Hour,
	}, logger.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := m.Subscribe(ctx)
	defer sub.Close()

	first := waitEvent(t, sub)
	if first.Name != EventConnected {
		t.Fatalf("first event = %s, want %s", first.Name, EventConnected)
	}
	connected, ok := first.Data.(*dto.ConnectedEventDTO)
	if !ok {
		t.Fatalf("connected payload type = %T", first.Data)
	}
	if connected.UpdateIntervalMs != time.Hour.Milliseconds() {
		t.Fatalf("update interval = %d, want %d", connected.UpdateIntervalMs, time.Hour.Milliseconds())
	}

	second := waitEvent(t, sub)
	if second.Name != EventAssessment {
		t.Fatalf("second event = %s, want %s", second.Name, EventAssessment)
	}
	payload, ok := second.Data.(*dto.AssessmentEventDTO)
	if !ok {
		t.Fatalf("assessment payload type = %T", second.Data)
	}
	if !payload.Success || payload.Data.OverallScore != 72.5 {
		t.Fatalf("assessment payload = %+v", payload)
	}
}

func TestSubscribe_HeartbeatKeepsFlowing(t *testing.T) {
	provider := &fakeProvider{assessment: testAssessment(40)}
	m := NewManager(provider, ManagerConfig{
		UpdateInterval:    time.Hour,
		HeartbeatInterval: 10 * time.Millisecond,
	}, logger.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := m.Subscribe(ctx)
	defer sub.Close()

	waitEvent(t, sub) // connected
	waitEvent(t, sub) // immediate assessment

	for i := 0; i < 3; i++ {
		ev := waitEvent(t, sub)
		if ev.Name != EventHeartbeat {
			t.Fatalf("event #%d = %s, want %s", i, ev.Name, EventHeartbeat)
		}
	}
}

func TestSendAssessment_ErrorEventKeepsStreamOpen(t *testing.T) {
	provider := &fakeProvider{err: usecase.ErrNoData}
	m := NewManager(provider, ManagerConfig{
		UpdateInterval:    time.Hour,
		HeartbeatInterval: 20 * time.Millisecond,
	}, logger.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := m.Subscribe(ctx)
	defer sub.Close()

	waitEvent(t, sub) // connected
	ev := waitEvent(t, sub)
	if ev.Name != EventError {
		t.Fatalf("event = %s, want %s", ev.Name, EventError)
	}
	if _, ok := ev.Data.(*dto.ErrorEventDTO); !ok {
		t.Fatalf("error payload type = %T", ev.Data)
	}

	// Соединение не закрыто: heartbeat продолжает приходить
	ev = waitEvent(t, sub)
	if ev.Name != EventHeartbeat {
		t.Fatalf("event after error = %s, want %s", ev.Name, EventHeartbeat)
	}
}

func TestSendAssessment_RunInProgressServesLatest(t *testing.T) {
	provider := &fakeProvider{
		err:    usecase.ErrRunInProgress,
		latest: testAssessment(55),
	}
	m := NewManager(provider, ManagerConfig{
		UpdateInterval:    time.Hour,
		HeartbeatInterval: time.Hour,
	}, logger.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := m.Subscribe(ctx)
	defer sub.Close()

	waitEvent(t, sub) // connected
	ev := waitEvent(t, sub)
	if ev.Name != EventAssessment {
		t.Fatalf("event = %s, want %s (served from latest snapshot)", ev.Name, EventAssessment)
	}
	payload := ev.Data.(*dto.AssessmentEventDTO)
	if payload.Data.OverallScore != 55 {
		t.Fatalf("overall score = %v, want 55", payload.Data.OverallScore)
	}
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	provider := &fakeProvider{assessment: testAssessment(10)}
	m := NewManager(provider, ManagerConfig{
		UpdateInterval:    time.Hour,
		HeartbeatInterval: time.Hour,
	}, logger.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := m.Subscribe(ctx)
	if m.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", m.ActiveCount())
	}

	sub.Close()
	sub.Close()
	sub.Close()

	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() after Close = %d, want 0", m.ActiveCount())
	}
}

func TestSubscribe_ContextCancelRemovesSubscriber(t *testing.T) {
	provider := &fakeProvider{assessment: testAssessment(10)}
	m := NewManager(provider, ManagerConfig{
		UpdateInterval:    time.Hour,
		HeartbeatInterval: time.Hour,
	}, logger.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	sub := m.Subscribe(ctx)
	waitEvent(t, sub) // connected

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for m.ActiveCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Fatalf("ctx.Err() = %v", ctx.Err())
	}
}
