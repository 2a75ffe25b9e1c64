package registry

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// Watch следит за файлом определений и перезагружает таблицу при записи.
// Работает до отмены ctx. Если перезагрузка не удалась (битый YAML,
// невалидное определение) - активной остается предыдущая таблица.
func (r *Registry) Watch(ctx context.Context, path string, log *logger.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	log.Info("Watching indicators file for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Редакторы часто сохраняют через rename (atomic save),
			// поэтому кроме Write ловим и Create
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if err := r.LoadFile(path); err != nil {
				log.Error("Indicators reload failed, keeping previous table", err, "path", path)
				continue
			}
			log.Info("Indicators table reloaded", "path", path, "count", len(r.Definitions()))

			// Atomic save мог заменить inode - переподписываемся
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Indicators watcher error", err)
		}
	}
}
