package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/dto"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/usecase"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// Имена событий stream-протокола
const (
	EventConnected  = "connected"
	EventAssessment = "assessment"
	EventHeartbeat  = "heartbeat"
	EventError      = "error"
)

// Event - одно именованное событие для push-подписчика
type Event struct {
	Name string
	Data interface{}
}

// AssessmentProvider поставляет assessments для рассылки подписчикам
type AssessmentProvider interface {
	Execute(ctx context.Context) (*entity.Assessment, bool, error)
	Latest() *entity.Assessment
}

// ManagerConfig настраивает push-рассылку
type ManagerConfig struct {
	UpdateInterval    time.Duration
	HeartbeatInterval time.Duration
	EventBufferSize   int
}

// Manager управляет push-подписками: каждому подписчику свой канал
// событий, свои update- и heartbeat-тикеры. Порядок для нового
// подписчика фиксирован: connected, затем немедленный assessment,
// затем периодические события.
type Manager struct {
	provider AssessmentProvider
	cfg      ManagerConfig
	logger   *logger.Logger

	mu   sync.RWMutex
	subs map[string]*Subscription
}

// Subscription - одна активная push-подписка
type Subscription struct {
	id     string
	events chan Event

	closeOnce sync.Once
	done      chan struct{}
	manager   *Manager
}

// NewManager создает stream manager
func NewManager(provider AssessmentProvider, cfg ManagerConfig, log *logger.Logger) *Manager {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 30 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = 16
	}

	return &Manager{
		provider: provider,
		cfg:      cfg,
		logger:   log,
		subs:     make(map[string]*Subscription),
	}
}

// Subscribe регистрирует нового подписчика и запускает его цикл рассылки.
// Цикл живет до отмены ctx или вызова Close.
func (m *Manager) Subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{
		id:      uuid.New().String(),
		events:  make(chan Event, m.cfg.EventBufferSize),
		done:    make(chan struct{}),
		manager: m,
	}

	m.mu.Lock()
	m.subs[sub.id] = sub
	m.mu.Unlock()

	m.logger.Info("Stream subscriber connected", "subscriber_id", sub.id, "active", m.ActiveCount())

	go m.run(ctx, sub)

	return sub
}

// ID возвращает идентификатор подписки
func (s *Subscription) ID() string {
	return s.id
}

// Events возвращает канал событий подписки
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close снимает подписку; повторные вызовы безопасны
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.manager.remove(s.id)
	})
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.subs, id)
	active := len(m.subs)
	m.mu.Unlock()

	m.logger.Info("Stream subscriber disconnected", "subscriber_id", id, "active", active)
}

// ActiveCount возвращает число активных подписок
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// run ведет жизненный цикл одного подписчика
func (m *Manager) run(ctx context.Context, sub *Subscription) {
	defer sub.Close()

	// Новый подписчик сразу получает подтверждение и текущий snapshot,
	// не дожидаясь первого tick
	m.send(sub, Event{Name: EventConnected, Data: &dto.ConnectedEventDTO{
		Message:          "stream established",
		UpdateIntervalMs: m.cfg.UpdateInterval.Milliseconds(),
	}})
	m.sendAssessment(ctx, sub)

	updateTicker := time.NewTicker(m.cfg.UpdateInterval)
	defer updateTicker.Stop()
	heartbeatTicker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-updateTicker.C:
			m.sendAssessment(ctx, sub)
		case <-heartbeatTicker.C:
			m.send(sub, Event{Name: EventHeartbeat, Data: time.Now().UTC()})
		}
	}
}

// sendAssessment выполняет прогон и отправляет результат подписчику.
// Отказ pipeline порождает событие error, соединение остается открытым.
func (m *Manager) sendAssessment(ctx context.Context, sub *Subscription) {
	assessment, _, err := m.provider.Execute(ctx)
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			if latest := m.provider.Latest(); latest != nil {
				m.send(sub, Event{Name: EventAssessment, Data: &dto.AssessmentEventDTO{
					Success: true,
					Data:    dto.FromAssessment(latest),
				}})
				return
			}
		}
		m.send(sub, Event{Name: EventError, Data: &dto.ErrorEventDTO{
			Message: "assessment temporarily unavailable",
		}})
		return
	}

	m.send(sub, Event{Name: EventAssessment, Data: &dto.AssessmentEventDTO{
		Success: true,
		Data:    dto.FromAssessment(assessment),
	}})
}

// send доставляет событие без блокировки: медленный подписчик
// теряет событие, но не задерживает остальных
func (m *Manager) send(sub *Subscription, event Event) {
	select {
	case <-sub.done:
	case sub.events <- event:
	default:
		m.logger.Warn("Dropping stream event for slow subscriber",
			"subscriber_id", sub.id, "event", event.Name)
	}
}
