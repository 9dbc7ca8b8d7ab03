package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"mobility-finance-engine/internal/service"
	"mobility-finance-engine/pkg/logger"
)

// GovernanceScheduler 周期性定稿窗口已关闭的提案
type GovernanceScheduler struct {
	cron          *cron.Cron
	governanceSvc *service.GovernanceService
	cronExpr      string
}

func NewGovernanceScheduler(governanceSvc *service.GovernanceService, cronExpr string) *GovernanceScheduler {
	return &GovernanceScheduler{
		cron:          cron.New(cron.WithSeconds()),
		governanceSvc: governanceSvc,
		cronExpr:      cronExpr,
	}
}

func (s *GovernanceScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cronExpr, s.finalizeExpired)
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("Proposal finalization scheduler started")
	return nil
}

func (s *GovernanceScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Proposal finalization scheduler stopped")
}

func (s *GovernanceScheduler) finalizeExpired() {
	ctx := context.Background()

	finalized, err := s.governanceSvc.FinalizeExpired(ctx)
	if err != nil {
		logger.Error("Failed to finalize expired proposals:", err)
		return
	}

	if finalized > 0 {
		logger.WithFields(map[string]interface{}{
			"finalized": finalized,
		}).Info("Expired proposals finalized")
	}
}

// TriggerManualFinalize 手动触发一轮定稿
func (s *GovernanceScheduler) TriggerManualFinalize(ctx context.Context) (int, error) {
	return s.governanceSvc.FinalizeExpired(ctx)
}
