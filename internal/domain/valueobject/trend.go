package valueobject

import "math"

// Trend представляет направление движения индикатора (Value Object)
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// trendDeadBand - изменение меньше ±0.5% считается шумом
const trendDeadBand = 0.5

// String возвращает строковое представление тренда
func (t Trend) String() string {
	return string(t)
}

// TrendFromChange выводит тренд из процентного изменения значения
func TrendFromChange(changePercent float64) Trend {
	if math.Abs(changePercent) < trendDeadBand {
		return TrendStable
	}
	if changePercent > 0 {
		return TrendRising
	}
	return TrendFalling
}
