package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mobility-finance-engine/internal/equity"
	"mobility-finance-engine/internal/models"
	"mobility-finance-engine/internal/oracle"
	"mobility-finance-engine/internal/repository"
	"mobility-finance-engine/internal/scheduler"
	"mobility-finance-engine/internal/service"
	"mobility-finance-engine/pkg/errors"
)

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError 按业务错误码映射HTTP状态
func writeServiceError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	status := http.StatusInternalServerError

	switch code {
	case errors.ErrUnauthorized:
		status = http.StatusForbidden
	case errors.ErrNotFound:
		status = http.StatusNotFound
	case errors.ErrInvalidInput:
		status = http.StatusBadRequest
	case errors.ErrInvalidState, errors.ErrFundingExceeded, errors.ErrAlreadyDecided,
		errors.ErrAlreadyDistributed, errors.ErrAlreadyVoted,
		errors.ErrVotingClosed, errors.ErrVotingOpen:
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  code,
	})
}

func pagination(r *http.Request) (offset, limit int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}

func pathSuffix(r *http.Request, prefixParts int) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) <= prefixParts {
		return ""
	}
	return parts[prefixParts]
}

type AssetHandler struct {
	poolSvc *service.LoanPoolService
}

func NewAssetHandler(poolSvc *service.LoanPoolService) *AssetHandler {
	return &AssetHandler{poolSvc: poolSvc}
}

func (h *AssetHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Caller       string `json:"caller"`
		AssetID      string `json:"asset_id"`
		Name         string `json:"name"`
		AssetType    string `json:"asset_type"`
		Location     string `json:"location"`
		TargetAmount string `json:"target_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset, err := h.poolSvc.CreateAsset(r.Context(), req.Caller, req.AssetID, req.Name, req.AssetType, req.Location, req.TargetAmount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, asset)
}

// lifecycle 资产生命周期推进的公共处理
func (h *AssetHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, caller, assetID string) error) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Caller  string `json:"caller"`
		AssetID string `json:"asset_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := op(r.Context(), req.Caller, req.AssetID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"asset_id": req.AssetID, "result": "ok"})
}

func (h *AssetHandler) OpenFunding(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.poolSvc.OpenFunding)
}

func (h *AssetHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.poolSvc.Activate)
}

func (h *AssetHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.poolSvc.Complete)
}

func (h *AssetHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Investor string `json:"investor"`
		AssetID  string `json:"asset_id"`
		Amount   string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contrib, err := h.poolSvc.Contribute(r.Context(), req.Investor, req.AssetID, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, contrib)
}

func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	assetID := pathSuffix(r, 2)
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/assets/{asset_id}")
		return
	}

	asset, err := h.poolSvc.Asset(r.Context(), assetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if asset == nil {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}

	writeJSON(w, http.StatusOK, asset)
}

func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	offset, limit := pagination(r)
	assets, err := h.poolSvc.Assets(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": assets,
		"count": len(assets),
	})
}

func (h *AssetHandler) GetContributions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var contribs []models.Contribution
	var err error

	switch {
	case r.URL.Query().Get("asset_id") != "":
		contribs, err = h.poolSvc.AssetContributions(r.Context(), r.URL.Query().Get("asset_id"))
	case r.URL.Query().Get("investor") != "":
		_, limit := pagination(r)
		contribs, err = h.poolSvc.InvestorContributions(r.Context(), r.URL.Query().Get("investor"), limit)
	default:
		writeError(w, http.StatusBadRequest, "asset_id or investor is required")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": contribs,
		"count": len(contribs),
	})
}

type ApplicationHandler struct {
	rateSvc *service.RateAdjusterService
}

func NewApplicationHandler(rateSvc *service.RateAdjusterService) *ApplicationHandler {
	return &ApplicationHandler{rateSvc: rateSvc}
}

func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Borrower        string `json:"borrower"`
		AssetID         string `json:"asset_id"`
		RequestedAmount string `json:"requested_amount"`
		BaseRate        int    `json:"base_rate"`
		UrbanData       struct {
			Location       string `json:"location"`
			IncomeLevel    int    `json:"income_level"`
			PollutionLevel int    `json:"pollution_level"`
			TransportScore int    `json:"public_transport_score"`
			Density        int    `json:"population_density"`
		} `json:"urban_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	data, err := equity.New(req.UrbanData.Location, req.UrbanData.IncomeLevel,
		req.UrbanData.PollutionLevel, req.UrbanData.TransportScore,
		req.UrbanData.Density, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	app, err := h.rateSvc.SubmitApplication(r.Context(), req.Borrower, req.AssetID, req.RequestedAmount, req.BaseRate, data)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, app)
}

// decide 申请裁决的公共处理
func (h *ApplicationHandler) decide(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, caller, applicationID string) error) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Caller        string `json:"caller"`
		ApplicationID string `json:"application_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := op(r.Context(), req.Caller, req.ApplicationID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"application_id": req.ApplicationID, "result": "ok"})
}

func (h *ApplicationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.rateSvc.Approve)
}

func (h *ApplicationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.rateSvc.Reject)
}

func (h *ApplicationHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	applicationID := pathSuffix(r, 2)
	if applicationID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/applications/{application_id}")
		return
	}

	app, err := h.rateSvc.Application(r.Context(), applicationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if app == nil {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}

	writeJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) ListByBorrower(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	borrower := r.URL.Query().Get("borrower")
	if borrower == "" {
		writeError(w, http.StatusBadRequest, "borrower is required")
		return
	}

	_, limit := pagination(r)
	apps, err := h.rateSvc.BorrowerApplications(r.Context(), borrower, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": apps,
		"count": len(apps),
	})
}

type RevenueHandler struct {
	revenueSvc *service.RevenueService
}

func NewRevenueHandler(revenueSvc *service.RevenueService) *RevenueHandler {
	return &RevenueHandler{revenueSvc: revenueSvc}
}

func (h *RevenueHandler) Record(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Caller           string `json:"caller"`
		AssetID          string `json:"asset_id"`
		EventID          string `json:"event_id"`
		TotalRevenue     string `json:"total_revenue"`
		RideCount        int64  `json:"ride_count"`
		CO2SavedKg       int64  `json:"co2_saved_kg"`
		UnderservedRides int64  `json:"underserved_rides"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.revenueSvc.RecordRevenue(r.Context(), req.Caller, req.AssetID, req.EventID,
		req.TotalRevenue, req.RideCount, req.CO2SavedKg, req.UnderservedRides)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

func (h *RevenueHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Caller      string `json:"caller"`
		EventID     string `json:"event_id"`
		EquityScore int    `json:"equity_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, shares, err := h.revenueSvc.Distribute(r.Context(), req.Caller, req.EventID, req.EquityScore)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event":  event,
		"shares": shares,
	})
}

func (h *RevenueHandler) SetBonusRate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Caller       string `json:"caller"`
		BonusRatePct int    `json:"bonus_rate_pct"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.revenueSvc.SetBonusRate(req.Caller, req.BonusRatePct); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bonus_rate_pct": req.BonusRatePct})
}

func (h *RevenueHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	eventID := pathSuffix(r, 2)
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/revenue/{event_id}")
		return
	}

	event, err := h.revenueSvc.Event(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "revenue event not found")
		return
	}

	shares, err := h.revenueSvc.Shares(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event":  event,
		"shares": shares,
	})
}

func (h *RevenueHandler) Impact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	co2, rides, underserved, err := h.revenueSvc.ImpactMetrics(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"co2_saved_kg":      co2,
		"total_rides":       rides,
		"underserved_rides": underserved,
	})
}

type GovernanceHandler struct {
	governanceSvc *service.GovernanceService
}

func NewGovernanceHandler(governanceSvc *service.GovernanceService) *GovernanceHandler {
	return &GovernanceHandler{governanceSvc: governanceSvc}
}

func (h *GovernanceHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Proposer        string `json:"proposer"`
		Title           string `json:"title"`
		Description     string `json:"description"`
		BoostThreshold  *int   `json:"equity_boost_threshold"`
		DurationSeconds int64  `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	threshold := -1
	if req.BoostThreshold != nil {
		threshold = *req.BoostThreshold
	}

	proposal, err := h.governanceSvc.CreateProposal(r.Context(), req.Proposer, req.Title,
		req.Description, threshold, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, proposal)
}

func (h *GovernanceHandler) Vote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Voter       string `json:"voter"`
		ProposalID  string `json:"proposal_id"`
		BasePower   string `json:"base_voting_power"`
		EquityScore int    `json:"equity_score"`
		Choice      string `json:"choice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vote, err := h.governanceSvc.Vote(r.Context(), req.Voter, req.ProposalID,
		req.BasePower, req.EquityScore, models.VoteChoice(req.Choice))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, vote)
}

func (h *GovernanceHandler) Tally(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	proposalID := r.URL.Query().Get("proposal_id")
	if proposalID == "" {
		writeError(w, http.StatusBadRequest, "proposal_id is required")
		return
	}

	forPower, againstPower, err := h.governanceSvc.Tally(r.Context(), proposalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"proposal_id":   proposalID,
		"for_power":     forPower,
		"against_power": againstPower,
	})
}

func (h *GovernanceHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		ProposalID string `json:"proposal_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.governanceSvc.Finalize(r.Context(), req.ProposalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"proposal_id": req.ProposalID,
		"outcome":     string(outcome),
	})
}

func (h *GovernanceHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	proposals, err := h.governanceSvc.ActiveProposals(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": proposals,
		"count": len(proposals),
	})
}

func (h *GovernanceHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	proposalID := pathSuffix(r, 2)
	if proposalID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/governance/{proposal_id}")
		return
	}

	proposal, err := h.governanceSvc.Proposal(r.Context(), proposalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if proposal == nil {
		writeError(w, http.StatusNotFound, "proposal not found")
		return
	}

	votes, err := h.governanceSvc.ProposalVotes(r.Context(), proposalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"proposal": proposal,
		"votes":    votes,
	})
}

// Voter GET查询选民登记，POST由预言机更新
func (h *GovernanceHandler) Voter(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getVoter(w, r)
	case http.MethodPost:
		h.updateVoter(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *GovernanceHandler) getVoter(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	record, err := h.governanceSvc.Voter(r.Context(), address)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "voter not registered")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *GovernanceHandler) updateVoter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string `json:"caller"`
		Voter       string `json:"voter"`
		StakeAmount string `json:"stake_amount"`
		EquityScore int    `json:"equity_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.governanceSvc.UpdateVoterData(r.Context(), req.Caller, req.Voter, req.StakeAmount, req.EquityScore); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"voter": req.Voter, "result": "ok"})
}

// FinalizeExpiredHandler 手动触发一轮过期提案定稿，不必等待定时任务
type FinalizeExpiredHandler struct {
	scheduler *scheduler.GovernanceScheduler
}

func NewFinalizeExpiredHandler(s *scheduler.GovernanceScheduler) *FinalizeExpiredHandler {
	return &FinalizeExpiredHandler{scheduler: s}
}

func (h *FinalizeExpiredHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	finalized, err := h.scheduler.TriggerManualFinalize(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"finalized": finalized})
}

type UrbanDataHandler struct {
	provider *oracle.Provider
}

func NewUrbanDataHandler(provider *oracle.Provider) *UrbanDataHandler {
	return &UrbanDataHandler{provider: provider}
}

func (h *UrbanDataHandler) GetUrbanData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	location := pathSuffix(r, 2)
	if location == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/urban-data/{location}")
		return
	}

	data, err := h.provider.UrbanData(r.Context(), location)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"urban_data":   data,
		"equity_score": equity.Score(data),
	})
}

func (h *UrbanDataHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Caller         string `json:"caller"`
		Location       string `json:"location"`
		IncomeLevel    int    `json:"income_level"`
		PollutionLevel int    `json:"pollution_level"`
		TransportScore int    `json:"public_transport_score"`
		Density        int    `json:"population_density"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	data, err := equity.New(req.Location, req.IncomeLevel, req.PollutionLevel,
		req.TransportScore, req.Density, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.provider.Update(r.Context(), req.Caller, data); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"location": req.Location, "result": "ok"})
}

// StatsHandler 面板只读聚合指标
type StatsHandler struct {
	assetRepo    *repository.AssetRepository
	contribRepo  *repository.ContributionRepository
	appRepo      *repository.ApplicationRepository
	revenueRepo  *repository.RevenueRepository
	proposalRepo *repository.ProposalRepository
}

func NewStatsHandler(
	assetRepo *repository.AssetRepository,
	contribRepo *repository.ContributionRepository,
	appRepo *repository.ApplicationRepository,
	revenueRepo *repository.RevenueRepository,
	proposalRepo *repository.ProposalRepository,
) *StatsHandler {
	return &StatsHandler{
		assetRepo:    assetRepo,
		contribRepo:  contribRepo,
		appRepo:      appRepo,
		revenueRepo:  revenueRepo,
		proposalRepo: proposalRepo,
	}
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()

	assetCounts, err := h.assetRepo.CountByStatus(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count assets: "+err.Error())
		return
	}

	var totalAssets int64
	for _, c := range assetCounts {
		totalAssets += c
	}

	totalFunding, err := h.contribRepo.TotalRaised(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sum funding: "+err.Error())
		return
	}

	scoreDist, err := h.assetRepo.ScoreDistribution(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get score distribution: "+err.Error())
		return
	}

	appCounts, err := h.appRepo.CountByStatus(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count applications: "+err.Error())
		return
	}

	revenueDistributed, err := h.revenueRepo.TotalDistributed(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sum revenue: "+err.Error())
		return
	}

	activeProposals, err := h.proposalRepo.CountActive(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count proposals: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_assets":        totalAssets,
		"assets_by_status":    assetCounts,
		"total_funding":       totalFunding,
		"score_distribution":  scoreDist,
		"applications":        appCounts,
		"revenue_distributed": revenueDistributed,
		"active_proposals":    activeProposals,
		"updated_at":          time.Now().Format(time.RFC3339),
	})
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
