package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/service"
)

// SetupRouter wires the HTTP surface.
func SetupRouter(collectionSvc *service.CollectionService, reconciliationSvc *service.ReconciliationService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(collectionSvc, reconciliationSvc)

	api := r.Group("/api/v1")
	{
		payments := api.Group("/payments")
		{
			payments.POST("/collect", h.CollectPayment)
			payments.GET("/detail", h.GetPaymentRecord)
		}

		reconciliations := api.Group("/reconciliations")
		{
			reconciliations.GET("/daily-totals", h.GetDailyTotals)
			reconciliations.POST("/generate", h.GenerateReconciliation)
			reconciliations.POST("/submit", h.SubmitReconciliation)
			reconciliations.POST("/acknowledge", h.AcknowledgeReconciliation)
			reconciliations.POST("/dispute", h.DisputeReconciliation)
			reconciliations.GET("/detail", h.GetReconciliation)
			reconciliations.GET("/list", h.ListReconciliations)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
