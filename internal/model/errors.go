package model

import "errors"

// Ошибки подсистемы сверки. Все они ограничены одной единицей работы
// (user, week) и агрегируются в статистику — ничто здесь не фатально
// для процесса.
var (
	// ErrSourceUnavailable сбой сети или авторизации адаптера источника;
	// восстановимо, повтор на следующем плановом проходе
	ErrSourceUnavailable = errors.New("busy source unavailable")

	// ErrPersistenceConflict запись изменена конкурентно; upsert
	// повторяется один раз, затем ошибка отдаётся для этой недели
	ErrPersistenceConflict = errors.New("availability record modified concurrently")

	// ErrNotConnected у пользователя нет подключённого календаря провайдера
	ErrNotConnected = errors.New("calendar provider not connected")
)
