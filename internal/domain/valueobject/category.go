package valueobject

import "errors"

// Category представляет категорию риск-индикатора (Value Object)
type Category string

const (
	Valuation Category = "valuation"
	Financial Category = "financial"
	Macro     Category = "macro"
	Market    Category = "market"
	Sentiment Category = "sentiment"
)

// Validate проверяет валидность категории
func (c Category) Validate() error {
	switch c {
	case Valuation, Financial, Macro, Market, Sentiment:
		return nil
	default:
		return errors.New("invalid indicator category")
	}
}

// String возвращает строковое представление категории
func (c Category) String() string {
	return string(c)
}

// DisplayName возвращает человекочитаемое имя категории
func (c Category) DisplayName() string {
	switch c {
	case Valuation:
		return "Valuation"
	case Financial:
		return "Financial Stress"
	case Macro:
		return "Macroeconomic"
	case Market:
		return "Market Structure"
	case Sentiment:
		return "Sentiment"
	default:
		return string(c)
	}
}

// AllCategories возвращает категории в каноническом порядке.
// Порядок фиксирован: от него зависят similarity-векторы и tie-break
// при выборе top warning индикаторов.
func AllCategories() []Category {
	return []Category{Valuation, Financial, Macro, Market, Sentiment}
}
