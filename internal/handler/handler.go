package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/model"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/service"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/apperr"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/response"
)

// Handler bundles the service dependencies behind the HTTP surface.
type Handler struct {
	collectionService     *service.CollectionService
	reconciliationService *service.ReconciliationService
}

func NewHandler(collectionSvc *service.CollectionService, reconciliationSvc *service.ReconciliationService) *Handler {
	return &Handler{
		collectionService:     collectionSvc,
		reconciliationService: reconciliationSvc,
	}
}

// writeServiceError maps the error taxonomy onto response codes.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case apperr.IsValidation(err):
		response.ParamError(c, err.Error())
	case apperr.IsNotFound(err):
		response.NotFound(c, err.Error())
	case apperr.IsInvalidTransition(err):
		response.BusinessError(c, response.CodeInvalidTransition, err.Error())
	case apperr.IsReconciliationData(err):
		response.BusinessError(c, response.CodeReconciliationData, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// Payment collection
// ============================================================

// CollectPaymentRequest is the driver-app payload for settling a stop.
type CollectPaymentRequest struct {
	DriverID        int64           `json:"driver_id" binding:"required"`
	StopID          int64           `json:"stop_id" binding:"required"`
	AmountCollected decimal.Decimal `json:"amount_collected"`
	Method          string          `json:"method" binding:"required"`
	Reference       string          `json:"reference"`
	ShortageReason  string          `json:"shortage_reason"`
	Notes           string          `json:"notes"`
}

// PaymentRecordView adds the computed shortage figures to the record.
type PaymentRecordView struct {
	*model.PaymentRecord
	ShortageAmount     decimal.Decimal `json:"shortage_amount"`
	ShortagePercentage decimal.Decimal `json:"shortage_percentage"`
}

func newPaymentRecordView(record *model.PaymentRecord) *PaymentRecordView {
	return &PaymentRecordView{
		PaymentRecord:      record,
		ShortageAmount:     record.ShortageAmount(),
		ShortagePercentage: record.ShortagePercentage(),
	}
}

// CollectPayment records a stop settlement.
// POST /api/v1/payments/collect
func (h *Handler) CollectPayment(c *gin.Context) {
	var req CollectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	record, err := h.collectionService.CollectPayment(c.Request.Context(), &service.CollectPaymentRequest{
		DriverID:        req.DriverID,
		StopID:          req.StopID,
		AmountCollected: req.AmountCollected,
		Method:          req.Method,
		Reference:       req.Reference,
		ShortageReason:  req.ShortageReason,
		Notes:           req.Notes,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, newPaymentRecordView(record))
}

// GetPaymentRecord returns one settlement record.
// GET /api/v1/payments/detail?driver_id=xxx&payment_no=xxx
func (h *Handler) GetPaymentRecord(c *gin.Context) {
	driverID, err := strconv.ParseInt(c.Query("driver_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid driver_id")
		return
	}
	paymentNo := c.Query("payment_no")
	if paymentNo == "" {
		response.ParamError(c, "payment_no is required")
		return
	}

	record, err := h.collectionService.GetPaymentRecord(c.Request.Context(), driverID, paymentNo)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, newPaymentRecordView(record))
}

// ============================================================
// Reconciliation
// ============================================================

// ReconciliationView exposes the reconciliation with its status label.
type ReconciliationView struct {
	*model.Reconciliation
	StatusLabel string `json:"status_label"`
}

func newReconciliationView(recon *model.Reconciliation) *ReconciliationView {
	return &ReconciliationView{
		Reconciliation: recon,
		StatusLabel:    recon.StatusLabel(),
	}
}

// GetDailyTotals returns the aggregated day without persisting anything.
// GET /api/v1/reconciliations/daily-totals?driver_id=xxx&date=2026-01-15
func (h *Handler) GetDailyTotals(c *gin.Context) {
	driverID, err := strconv.ParseInt(c.Query("driver_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid driver_id")
		return
	}

	totals, err := h.collectionService.CalculateDailyTotals(c.Request.Context(), driverID, c.Query("date"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, totals)
}

// GenerateReconciliationRequest is the end-of-day generation payload.
type GenerateReconciliationRequest struct {
	DriverID   int64  `json:"driver_id" binding:"required"`
	Date       string `json:"date" binding:"required"`
	BusinessID int64  `json:"business_id"`
}

// GenerateReconciliation builds (or returns) the day's reconciliation.
// POST /api/v1/reconciliations/generate
func (h *Handler) GenerateReconciliation(c *gin.Context) {
	var req GenerateReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	var recon *model.Reconciliation
	var err error
	if req.BusinessID != 0 {
		recon, err = h.reconciliationService.GenerateReconciliation(c.Request.Context(), req.DriverID, req.Date, req.BusinessID)
	} else {
		recon, err = h.reconciliationService.GetOrCreateReconciliation(c.Request.Context(), req.DriverID, req.Date)
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, newReconciliationView(recon))
}

// TransitionRequest identifies the reconciliation a lifecycle action
// applies to.
type TransitionRequest struct {
	DriverID         int64  `json:"driver_id" binding:"required"`
	ReconciliationNo string `json:"reconciliation_no" binding:"required"`
}

// SubmitReconciliation moves pending to submitted and queues the ERP
// notification.
// POST /api/v1/reconciliations/submit
func (h *Handler) SubmitReconciliation(c *gin.Context) {
	h.transition(c, h.reconciliationService.Submit)
}

// AcknowledgeReconciliation moves submitted to acknowledged.
// POST /api/v1/reconciliations/acknowledge
func (h *Handler) AcknowledgeReconciliation(c *gin.Context) {
	h.transition(c, h.reconciliationService.Acknowledge)
}

// DisputeReconciliation moves submitted or acknowledged to disputed.
// POST /api/v1/reconciliations/dispute
func (h *Handler) DisputeReconciliation(c *gin.Context) {
	h.transition(c, h.reconciliationService.Dispute)
}

func (h *Handler) transition(c *gin.Context, apply func(ctx context.Context, driverID int64, reconciliationNo string) (*model.Reconciliation, error)) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	recon, err := apply(c.Request.Context(), req.DriverID, req.ReconciliationNo)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, newReconciliationView(recon))
}

// GetReconciliation returns one reconciliation.
// GET /api/v1/reconciliations/detail?driver_id=xxx&reconciliation_no=xxx
func (h *Handler) GetReconciliation(c *gin.Context) {
	driverID, err := strconv.ParseInt(c.Query("driver_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid driver_id")
		return
	}
	reconciliationNo := c.Query("reconciliation_no")
	if reconciliationNo == "" {
		response.ParamError(c, "reconciliation_no is required")
		return
	}

	recon, err := h.reconciliationService.GetReconciliation(c.Request.Context(), driverID, reconciliationNo)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, newReconciliationView(recon))
}

// ListReconciliations pages through a driver's reconciliation history.
// GET /api/v1/reconciliations/list?driver_id=xxx&page=1&page_size=10
func (h *Handler) ListReconciliations(c *gin.Context) {
	driverID, err := strconv.ParseInt(c.Query("driver_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid driver_id")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	recons, total, err := h.reconciliationService.ListReconciliations(c.Request.Context(), driverID, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	views := make([]*ReconciliationView, 0, len(recons))
	for _, recon := range recons {
		views = append(views, newReconciliationView(recon))
	}

	response.Success(c, gin.H{
		"list":      views,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
