package notification

import (
	"context"
	"sync"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/dto"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/port"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/service"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// Dispatcher применяет throttle-политику и рассылает уведомления по
// каналам параллельно. Состояние "последней отправки" обновляется
// только после успешной доставки хотя бы в один канал: провальная
// рассылка не съедает cooldown-окно.
type Dispatcher struct {
	policy   *service.NotificationPolicy
	channels []port.NotificationChannel
	logger   *logger.Logger

	mu         sync.Mutex
	lastLevel  valueobject.RiskLevel
	lastSentAt time.Time

	now func() time.Time
}

// NewDispatcher создает dispatcher уведомлений
func NewDispatcher(policy *service.NotificationPolicy, channels []port.NotificationChannel, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		policy:   policy,
		channels: channels,
		logger:   log,
		now:      time.Now,
	}
}

// MaybeNotify реализует usecase.Notifier
func (d *Dispatcher) MaybeNotify(ctx context.Context, assessment *entity.Assessment) bool {
	if len(d.channels) == 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !d.policy.ShouldNotify(assessment.OverallLevel, d.lastLevel, d.lastSentAt, now) {
		d.logger.Debug("Notification suppressed by throttle policy",
			"level", assessment.OverallLevel,
			"last_sent_at", d.lastSentAt,
		)
		return false
	}

	payload := dto.FromAssessment(assessment)

	// Каналы независимы: отказ одного не мешает остальным
	results := make([]bool, len(d.channels))
	var wg sync.WaitGroup
	for i, channel := range d.channels {
		wg.Add(1)
		go func(i int, channel port.NotificationChannel) {
			defer wg.Done()
			results[i] = channel.Notify(ctx, payload)
			if !results[i] {
				d.logger.Warn("Notification channel delivery failed", "channel", channel.Name())
			}
		}(i, channel)
	}
	wg.Wait()

	delivered := false
	for _, ok := range results {
		if ok {
			delivered = true
			break
		}
	}

	if delivered {
		d.lastLevel = assessment.OverallLevel
		d.lastSentAt = now
		d.logger.Info("Notifications dispatched",
			"level", assessment.OverallLevel,
			"channels", len(d.channels),
		)
	}

	return delivered
}
