package valueobject

import "fmt"

// RiskLevel представляет уровень риска (Value Object)
type RiskLevel string

const (
	LevelSafe    RiskLevel = "safe"
	LevelCaution RiskLevel = "caution"
	LevelWarning RiskLevel = "warning"
	LevelDanger  RiskLevel = "danger"
)

// String возвращает строковое представление уровня
func (l RiskLevel) String() string {
	return string(l)
}

// rank возвращает порядковый номер уровня для сравнения
func (l RiskLevel) rank() int {
	switch l {
	case LevelSafe:
		return 0
	case LevelCaution:
		return 1
	case LevelWarning:
		return 2
	case LevelDanger:
		return 3
	default:
		return -1
	}
}

// AtLeast проверяет, что уровень не ниже указанного
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.rank() >= other.rank()
}

// EscalatedFrom проверяет эскалацию минимум на один полный band
func (l RiskLevel) EscalatedFrom(previous RiskLevel) bool {
	return l.rank() > previous.rank()
}

// Bands задает границы уровней риска. Политика общая для индикаторов,
// категорий и overall score: [0,Caution) -> safe, [Caution,Warning) -> caution,
// [Warning,Danger) -> warning, [Danger,100] -> danger.
type Bands struct {
	Caution float64
	Warning float64
	Danger  float64
}

// DefaultBands возвращает стандартные границы 30/50/70
func DefaultBands() Bands {
	return Bands{Caution: 30, Warning: 50, Danger: 70}
}

// Validate проверяет, что границы строго возрастают
func (b Bands) Validate() error {
	if !(b.Caution < b.Warning && b.Warning < b.Danger) {
		return fmt.Errorf("risk bands must be strictly increasing, got %.1f/%.1f/%.1f",
			b.Caution, b.Warning, b.Danger)
	}
	return nil
}

// LevelFor возвращает уровень риска для score
func (b Bands) LevelFor(score float64) RiskLevel {
	switch {
	case score >= b.Danger:
		return LevelDanger
	case score >= b.Warning:
		return LevelWarning
	case score >= b.Caution:
		return LevelCaution
	default:
		return LevelSafe
	}
}
