package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mobility-finance-engine/internal/config"
	"mobility-finance-engine/internal/handler"
	"mobility-finance-engine/internal/models"
	"mobility-finance-engine/internal/oracle"
	"mobility-finance-engine/internal/repository"
	"mobility-finance-engine/internal/scheduler"
	"mobility-finance-engine/internal/service"
	"mobility-finance-engine/pkg/errors"
	"mobility-finance-engine/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := initDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer closeDatabase(db)

	assetRepo := repository.NewAssetRepository(db)
	contribRepo := repository.NewContributionRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	revenueRepo := repository.NewRevenueRepository(db)
	proposalRepo := repository.NewProposalRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	urbanRepo := repository.NewUrbanDataRepository(db)

	urbanProvider := oracle.NewProvider(urbanRepo, cfg.Identity.OracleAddress)

	poolSvc := service.NewLoanPoolService(assetRepo, contribRepo, urbanProvider, cfg.Identity.AdminAddress)
	rateSvc := service.NewRateAdjusterService(appRepo, cfg.Identity.AdminAddress, cfg.Engine.MaxRateAdjustment)
	revenueSvc := service.NewRevenueService(revenueRepo, poolSvc, cfg.Identity.AdminAddress, cfg.Identity.OracleAddress, cfg.Engine.BonusRatePct)
	governanceSvc := service.NewGovernanceService(proposalRepo, voteRepo, service.GovernanceParams{
		AdminAddress:          cfg.Identity.AdminAddress,
		OracleAddress:         cfg.Identity.OracleAddress,
		EquityBoostMultiplier: cfg.Governance.EquityBoostMultiplier,
		DefaultBoostThreshold: cfg.Governance.DefaultBoostThreshold,
		MinProposalDuration:   time.Duration(cfg.Governance.MinProposalDuration) * time.Second,
		QuorumThresholdPct:    cfg.Governance.QuorumThresholdPct,
	})

	governanceScheduler := scheduler.NewGovernanceScheduler(governanceSvc, cfg.Governance.FinalizeCron)
	if err := governanceScheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler:", err)
	}
	defer governanceScheduler.Stop()

	router := setupHTTPRouter(poolSvc, rateSvc, revenueSvc, governanceSvc, urbanProvider,
		governanceScheduler, assetRepo, contribRepo, appRepo, revenueRepo, proposalRepo)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting on port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error:", err)
	}

	logger.Info("Server stopped")
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, errors.New(errors.ErrDatabaseConnect, "failed to open database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := db.AutoMigrate(
		&models.MobilityAsset{},
		&models.Contribution{},
		&models.LoanApplication{},
		&models.RevenueEvent{},
		&models.InvestorShare{},
		&models.Proposal{},
		&models.Vote{},
		&models.VoterRecord{},
		&models.UrbanDataRecord{},
	); err != nil {
		return nil, err
	}

	return db, nil
}

func closeDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get database instance:", err)
		return
	}
	sqlDB.Close()
}

func setupHTTPRouter(
	poolSvc *service.LoanPoolService,
	rateSvc *service.RateAdjusterService,
	revenueSvc *service.RevenueService,
	governanceSvc *service.GovernanceService,
	urbanProvider *oracle.Provider,
	governanceScheduler *scheduler.GovernanceScheduler,
	assetRepo *repository.AssetRepository,
	contribRepo *repository.ContributionRepository,
	appRepo *repository.ApplicationRepository,
	revenueRepo *repository.RevenueRepository,
	proposalRepo *repository.ProposalRepository,
) http.Handler {
	router := http.NewServeMux()

	assetHandler := handler.NewAssetHandler(poolSvc)
	appHandler := handler.NewApplicationHandler(rateSvc)
	revenueHandler := handler.NewRevenueHandler(revenueSvc)
	governanceHandler := handler.NewGovernanceHandler(governanceSvc)
	urbanHandler := handler.NewUrbanDataHandler(urbanProvider)
	finalizeHandler := handler.NewFinalizeExpiredHandler(governanceScheduler)
	statsHandler := handler.NewStatsHandler(assetRepo, contribRepo, appRepo, revenueRepo, proposalRepo)

	router.HandleFunc("/api/assets/create", assetHandler.CreateAsset)
	router.HandleFunc("/api/assets/open-funding", assetHandler.OpenFunding)
	router.HandleFunc("/api/assets/activate", assetHandler.Activate)
	router.HandleFunc("/api/assets/complete", assetHandler.Complete)
	router.HandleFunc("/api/assets/contribute", assetHandler.Contribute)
	router.HandleFunc("/api/assets/list", assetHandler.ListAssets)
	router.HandleFunc("/api/assets/", assetHandler.GetAsset)
	router.HandleFunc("/api/contributions", assetHandler.GetContributions)

	router.HandleFunc("/api/applications/submit", appHandler.Submit)
	router.HandleFunc("/api/applications/approve", appHandler.Approve)
	router.HandleFunc("/api/applications/reject", appHandler.Reject)
	router.HandleFunc("/api/applications/list", appHandler.ListByBorrower)
	router.HandleFunc("/api/applications/", appHandler.GetApplication)

	router.HandleFunc("/api/revenue/record", revenueHandler.Record)
	router.HandleFunc("/api/revenue/distribute", revenueHandler.Distribute)
	router.HandleFunc("/api/revenue/impact", revenueHandler.Impact)
	router.HandleFunc("/api/revenue/bonus-rate", revenueHandler.SetBonusRate)
	router.HandleFunc("/api/revenue/", revenueHandler.GetEvent)

	router.HandleFunc("/api/governance/propose", governanceHandler.CreateProposal)
	router.HandleFunc("/api/governance/vote", governanceHandler.Vote)
	router.HandleFunc("/api/governance/tally", governanceHandler.Tally)
	router.HandleFunc("/api/governance/finalize", governanceHandler.Finalize)
	router.HandleFunc("/api/governance/active", governanceHandler.ListActive)
	router.HandleFunc("/api/governance/voter", governanceHandler.Voter)
	router.HandleFunc("/api/governance/finalize-expired", finalizeHandler.Trigger)
	router.HandleFunc("/api/governance/", governanceHandler.GetProposal)

	router.HandleFunc("/api/urban-data/update", urbanHandler.Update)
	router.HandleFunc("/api/urban-data/", urbanHandler.GetUrbanData)

	router.HandleFunc("/api/stats", statsHandler.GetStats)
	router.HandleFunc("/health", handler.HandleHealth)

	return router
}
