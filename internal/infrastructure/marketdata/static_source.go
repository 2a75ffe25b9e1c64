package marketdata

import (
	"context"
	"sync"
)

// StaticSource отдает встроенный snapshot значений серий.
// Используется в dev/demo режиме и в тестах, когда внешний data
// provider недоступен.
type StaticSource struct {
	mu     sync.RWMutex
	values map[string]float64
}

// NewStaticSource создает источник с дефолтным snapshot рынка
func NewStaticSource() *StaticSource {
	return &StaticSource{
		values: map[string]float64{
			"MULTPL/SHILLER_PE":      31.2,
			"FRED/DDDM01USA156NWDB":  178.0,
			"SP500/FWD_PE":           20.4,
			"FRED/BAMLH0A0HYM2":      3.4,
			"FRED/T10Y2Y":            0.45,
			"FRED/STLFSI4":           -0.3,
			"FRED/CPIAUCSL_YOY":      2.9,
			"ISM/MAN_PMI":            49.2,
			"FRED/UNRATE_D12":        0.2,
			"CBOE/VIX":               17.8,
			"FINRA/MARGIN_YOY":       6.5,
			"SP500/PCT_ABOVE_200DMA": 62.0,
			"CBOE/PUT_CALL":          0.88,
			"CNN/FEAR_GREED":         58.0,
			"AAII/BULL_BEAR":         4.5,
		},
	}
}

// NewStaticSourceWithValues создает источник с заданным snapshot (для тестов)
func NewStaticSourceWithValues(values map[string]float64) *StaticSource {
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &StaticSource{values: copied}
}

// Fetch возвращает значение серии или nil, если серия неизвестна
func (s *StaticSource) Fetch(_ context.Context, seriesID string) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[seriesID]
	if !ok {
		return nil, nil
	}
	v := value
	return &v, nil
}

// SetValue подменяет значение серии (для тестов и демо-сценариев)
func (s *StaticSource) SetValue(seriesID string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[seriesID] = value
}

// Name возвращает имя источника
func (s *StaticSource) Name() string {
	return "static"
}
