package port

import "context"

// IndicatorSource - внешний поставщик сырых значений индикаторов.
// Fetch возвращает nil без ошибки, если серия существует, но значения
// сейчас нет: провайдер может отдавать null. Любая ошибка/nil означает,
// что индикатор отсутствует в этом прогоне - это не фатально для pipeline.
// Downstream-код работает только с *float64, никогда с сырыми payload
// провайдера.
type IndicatorSource interface {
	// Fetch возвращает текущее значение серии или nil
	Fetch(ctx context.Context, seriesID string) (*float64, error)

	// Name возвращает имя источника для логов
	Name() string
}
