// Package scheduler runs periodic maintenance: a daily snapshot of the
// data file and a consistency check over its contents.
package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"patient-education/internal/store"
)

type Scheduler struct {
	cron      *cron.Cron
	store     *store.Store
	backupDir string
	logger    *zap.Logger
}

func New(st *store.Store, backupDir string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		store:     st,
		backupDir: backupDir,
		logger:    logger,
	}
}

// Start registers the daily maintenance job (03:00 UTC). With no backup
// dir configured the scheduler stays idle.
func (s *Scheduler) Start() error {
	if s.backupDir == "" {
		s.logger.Info("backup dir not set, maintenance scheduler disabled")
		return nil
	}
	_, err := s.cron.AddFunc("0 3 * * *", func() {
		if err := s.RunOnce(); err != nil {
			s.logger.Error("maintenance run failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", zap.String("backup_dir", s.backupDir))
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

// RunOnce snapshots the data file and logs consistency problems.
func (s *Scheduler) RunOnce() error {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return fmt.Errorf("ensure backup dir: %w", err)
	}
	data, err := os.ReadFile(s.store.Path())
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no data file yet, skipping backup")
			return nil
		}
		return fmt.Errorf("read data file: %w", err)
	}
	name := fmt.Sprintf("patient_education_%s.json", time.Now().UTC().Format("20060102T150405"))
	target := filepath.Join(s.backupDir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	s.logger.Info("backup written", zap.String("path", target))

	doc := s.store.Load()
	for _, p := range doc.Check() {
		s.logger.Warn("consistency problem",
			zap.String("collection", p.Collection),
			zap.String("record_id", p.RecordID),
			zap.String("detail", p.Detail))
	}
	return nil
}
