package app

import (
	"context"
	"time"

	"github.com/gatherly/availability/internal/service"
	"go.uber.org/zap"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	syncService  *service.SyncService
	syncInterval time.Duration
	logger       *zap.Logger
	stopChan     chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(syncService *service.SyncService, syncInterval time.Duration, logger *zap.Logger) *Scheduler {
	if syncInterval <= 0 {
		syncInterval = 2 * time.Hour
	}
	return &Scheduler{
		syncService:  syncService,
		syncInterval: syncInterval,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	// Запускаем задачу синхронизации календарей
	go s.runCalendarSyncTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runCalendarSyncTask периодически сверяет доступность с календарями
func (s *Scheduler) runCalendarSyncTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.syncCalendars(ctx)

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.syncCalendars(ctx)
		case <-s.stopChan:
			s.logger.Info("Calendar sync task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Calendar sync task cancelled")
			return
		}
	}
}

// syncCalendars выполняет один проход синхронизации всех пользователей
func (s *Scheduler) syncCalendars(ctx context.Context) {
	s.logger.Info("Starting automatic calendar sync")

	stats, err := s.syncService.SyncAllUsers(ctx)
	if err != nil {
		s.logger.Error("Failed to sync calendars", zap.Error(err))
		return
	}

	s.logger.Info("Automatic calendar sync completed",
		zap.Int("synced", stats.Synced),
		zap.Int("errors", stats.Errors))
}
