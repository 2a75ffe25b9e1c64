package service

import (
	"testing"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

func TestShouldNotify(t *testing.T) {
	policy := NewNotificationPolicy(30 * time.Minute)
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name       string
		level      valueobject.RiskLevel
		lastLevel  valueobject.RiskLevel
		lastSentAt time.Time
		want       bool
	}{
		{
			name:  "below warning never notifies",
			level: valueobject.LevelCaution,
			want:  false,
		},
		{
			name:  "safe never notifies",
			level: valueobject.LevelSafe,
			want:  false,
		},
		{
			name:  "first warning notifies immediately",
			level: valueobject.LevelWarning,
			want:  true,
		},
		{
			name:       "cooldown suppresses repeat",
			level:      valueobject.LevelWarning,
			lastLevel:  valueobject.LevelWarning,
			lastSentAt: now.Add(-10 * time.Minute),
			want:       false,
		},
		{
			name:       "expired cooldown allows repeat",
			level:      valueobject.LevelWarning,
			lastLevel:  valueobject.LevelWarning,
			lastSentAt: now.Add(-30 * time.Minute),
			want:       true,
		},
		{
			name:       "escalation bypasses cooldown",
			level:      valueobject.LevelDanger,
			lastLevel:  valueobject.LevelWarning,
			lastSentAt: now.Add(-1 * time.Minute),
			want:       true,
		},
		{
			name:       "de-escalation does not bypass cooldown",
			level:      valueobject.LevelWarning,
			lastLevel:  valueobject.LevelDanger,
			lastSentAt: now.Add(-1 * time.Minute),
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.ShouldNotify(tt.level, tt.lastLevel, tt.lastSentAt, now)
			if got != tt.want {
				t.Fatalf("ShouldNotify() = %v, want %v", got, tt.want)
			}
		})
	}
}
