package registry

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

// Definition описывает один индикатор: диапазон, направление, порог.
// Добавление индикатора - изменение данных, а не кода: pipeline
// обрабатывает таблицу определений единообразно.
type Definition struct {
	ID            string               `yaml:"id"`
	Name          string               `yaml:"name"`
	Category      valueobject.Category `yaml:"category"`
	SeriesID      string               `yaml:"series_id"`
	Min           float64              `yaml:"min"`
	Max           float64              `yaml:"max"`
	Percentile90  float64              `yaml:"percentile90"`
	Threshold     float64              `yaml:"threshold"`
	HigherIsWorse bool                 `yaml:"higher_is_worse"`
}

// Validate проверяет определение (fail fast при загрузке, см. ошибки
// конфигурации в runtime недопустимы)
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("indicator id is required")
	}
	if err := d.Category.Validate(); err != nil {
		return fmt.Errorf("indicator %s: %w", d.ID, err)
	}
	if d.Min >= d.Max {
		return fmt.Errorf("indicator %s: min %.4f must be less than max %.4f", d.ID, d.Min, d.Max)
	}
	if d.HigherIsWorse && (d.Percentile90 <= d.Min || d.Percentile90 >= d.Max) {
		return fmt.Errorf("indicator %s: percentile90 %.4f must lie inside (%.4f, %.4f)",
			d.ID, d.Percentile90, d.Min, d.Max)
	}
	return nil
}

// Registry хранит активную таблицу определений индикаторов.
// Потокобезопасен: Watch может подменять таблицу на лету.
type Registry struct {
	mu   sync.RWMutex
	defs []Definition
}

// NewRegistry создает registry со встроенной таблицей по умолчанию
func NewRegistry() (*Registry, error) {
	r := &Registry{}
	if err := r.replace(DefaultDefinitions()); err != nil {
		return nil, err
	}
	return r, nil
}

// NewRegistryFromFile создает registry из YAML файла
func NewRegistryFromFile(path string) (*Registry, error) {
	r := &Registry{}
	if err := r.LoadFile(path); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadFile загружает и валидирует таблицу из YAML файла.
// При ошибке предыдущая таблица остается активной.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read indicators file: %w", err)
	}

	var doc struct {
		Indicators []Definition `yaml:"indicators"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse indicators file: %w", err)
	}
	if len(doc.Indicators) == 0 {
		return fmt.Errorf("indicators file %s defines no indicators", path)
	}

	return r.replace(doc.Indicators)
}

// Definitions возвращает копию активной таблицы
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, len(r.defs))
	copy(defs, r.defs)
	return defs
}

func (r *Registry) replace(defs []Definition) error {
	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate indicator id %s", d.ID)
		}
		seen[d.ID] = struct{}{}
	}

	r.mu.Lock()
	r.defs = defs
	r.mu.Unlock()
	return nil
}

// DefaultDefinitions возвращает встроенную таблицу индикаторов.
// Диапазоны взяты из исторических экстремумов каждой серии.
func DefaultDefinitions() []Definition {
	return []Definition{
		// Valuation
		{ID: "cape", Name: "Shiller CAPE", Category: valueobject.Valuation, SeriesID: "MULTPL/SHILLER_PE",
			Min: 10, Max: 45, Percentile90: 35, Threshold: 30, HigherIsWorse: true},
		{ID: "buffett_indicator", Name: "Market Cap / GDP", Category: valueobject.Valuation, SeriesID: "FRED/DDDM01USA156NWDB",
			Min: 50, Max: 220, Percentile90: 190, Threshold: 160, HigherIsWorse: true},
		{ID: "forward_pe", Name: "S&P 500 Forward P/E", Category: valueobject.Valuation, SeriesID: "SP500/FWD_PE",
			Min: 10, Max: 30, Percentile90: 24, Threshold: 21, HigherIsWorse: true},

		// Financial stress
		{ID: "hy_spread", Name: "High-Yield Spread", Category: valueobject.Financial, SeriesID: "FRED/BAMLH0A0HYM2",
			Min: 2.5, Max: 20, Percentile90: 9, Threshold: 6, HigherIsWorse: true},
		{ID: "yield_curve_10y2y", Name: "10Y-2Y Treasury Spread", Category: valueobject.Financial, SeriesID: "FRED/T10Y2Y",
			Min: -1.0, Max: 3.0, Percentile90: 0, Threshold: 0.2, HigherIsWorse: false},
		{ID: "financial_stress_index", Name: "St. Louis Fed Stress Index", Category: valueobject.Financial, SeriesID: "FRED/STLFSI4",
			Min: -2, Max: 5, Percentile90: 2.5, Threshold: 1, HigherIsWorse: true},

		// Macro
		{ID: "inflation_yoy", Name: "CPI Inflation YoY", Category: valueobject.Macro, SeriesID: "FRED/CPIAUCSL_YOY",
			Min: 0, Max: 10, Percentile90: 7, Threshold: 5, HigherIsWorse: true},
		{ID: "pmi", Name: "ISM Manufacturing PMI", Category: valueobject.Macro, SeriesID: "ISM/MAN_PMI",
			Min: 40, Max: 65, Percentile90: 45, Threshold: 47, HigherIsWorse: false},
		{ID: "unemployment_delta", Name: "Unemployment 12m Change", Category: valueobject.Macro, SeriesID: "FRED/UNRATE_D12",
			Min: -1.5, Max: 3, Percentile90: 1, Threshold: 0.5, HigherIsWorse: true},

		// Market structure
		{ID: "vix", Name: "CBOE VIX", Category: valueobject.Market, SeriesID: "CBOE/VIX",
			Min: 10, Max: 80, Percentile90: 35, Threshold: 30, HigherIsWorse: true},
		{ID: "margin_debt_growth", Name: "Margin Debt YoY Growth", Category: valueobject.Market, SeriesID: "FINRA/MARGIN_YOY",
			Min: -20, Max: 60, Percentile90: 40, Threshold: 30, HigherIsWorse: true},
		{ID: "pct_above_200dma", Name: "Stocks Above 200DMA", Category: valueobject.Market, SeriesID: "SP500/PCT_ABOVE_200DMA",
			Min: 10, Max: 90, Percentile90: 20, Threshold: 30, HigherIsWorse: false},

		// Sentiment
		{ID: "put_call_ratio", Name: "CBOE Put/Call Ratio", Category: valueobject.Sentiment, SeriesID: "CBOE/PUT_CALL",
			Min: 0.4, Max: 1.4, Percentile90: 0.55, Threshold: 0.55, HigherIsWorse: false},
		{ID: "fear_greed", Name: "Fear & Greed Index", Category: valueobject.Sentiment, SeriesID: "CNN/FEAR_GREED",
			Min: 0, Max: 100, Percentile90: 85, Threshold: 75, HigherIsWorse: true},
		{ID: "aaii_bull_spread", Name: "AAII Bull-Bear Spread", Category: valueobject.Sentiment, SeriesID: "AAII/BULL_BEAR",
			Min: -30, Max: 40, Percentile90: 30, Threshold: 25, HigherIsWorse: true},
	}
}
