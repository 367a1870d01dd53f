package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/internal/server/handlers"
)

// New wires the Gin engine with the cabin rental routes and middlewares.
func New(h *handlers.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/", h.Identify)

	cabins := api.Group("/cabins")
	cabins.GET("", h.ListCabins)
	cabins.POST("", h.RegisterCabin)
	cabins.GET("/:id", h.GetCabin)
	cabins.GET("/:id/availability", h.CheckAvailability)
	cabins.GET("/:id/checklist", h.ListChecklist)
	cabins.GET("/:id/maintenance", h.ListMaintenance)

	api.GET("/tasks", h.ListPreparationTasks)
	api.POST("/catalogs/seed", h.SeedCatalogs)

	api.POST("/customers", h.RegisterCustomer)
	api.GET("/customers/:id", h.GetCustomer)

	reservations := api.Group("/reservations")
	reservations.POST("", h.CreateReservation)
	reservations.GET("", h.ListReservations)
	reservations.GET("/:id", h.GetReservation)
	reservations.POST("/:id/confirm", h.ConfirmReservation)
	reservations.POST("/:id/cancel", h.CancelReservation)
	reservations.POST("/:id/customer-confirm", h.CustomerConfirmReservation)
	reservations.POST("/:id/reassign", h.ReassignReservation)
	reservations.POST("/:id/complete", h.CompleteReservation)
	reservations.GET("/:id/preparation", h.GetPreparationByReservation)
	reservations.GET("/:id/delivery", h.GetDeliveryRecord)
	reservations.POST("/:id/delivery", h.EnsureDeliveryRecord)
	reservations.POST("/:id/delivery/confirm", h.CustomerConfirmDelivery)
	reservations.POST("/:id/return/confirm", h.CustomerConfirmReturn)
	reservations.POST("/:id/check-in", h.CheckIn)
	reservations.POST("/:id/check-out", h.CheckOut)
	reservations.GET("/:id/payments", h.ListPayments)
	reservations.POST("/:id/payments", h.RecordPayment)
	reservations.POST("/:id/survey", h.SubmitSurvey)
	reservations.GET("/:id/loans", h.ListReservationLoans)
	reservations.POST("/:id/loans", h.LendEquipment)

	preparations := api.Group("/preparations")
	preparations.GET("/:id", h.GetPreparation)
	preparations.POST("/:id/assign", h.AssignPreparation)
	preparations.POST("/:id/progress", h.UpdateProgress)
	preparations.POST("/:id/complete", h.CompletePreparation)

	missing := api.Group("/missing-items")
	missing.POST("", h.RaiseMissingItem)
	missing.GET("", h.ListMissingItemReports)
	missing.POST("/:id/acknowledge", h.AcknowledgeMissingItem)
	missing.POST("/:id/resolve", h.ResolveMissingItem)

	maintenance := api.Group("/maintenance")
	maintenance.POST("", h.ScheduleMaintenance)
	maintenance.POST("/plan", h.PlanMaintenance)
	maintenance.POST("/:id/start", h.StartMaintenance)
	maintenance.POST("/:id/finalize", h.FinalizeMaintenance)
	maintenance.POST("/:id/cancel", h.CancelMaintenance)

	equipment := api.Group("/equipment")
	equipment.GET("", h.ListEquipment)
	equipment.POST("", h.RegisterEquipment)
	equipment.POST("/:id/maintenance", h.SetEquipmentMaintenance)

	loans := api.Group("/loans")
	loans.GET("", h.ListLoans)
	loans.POST("/:id/return", h.ReturnEquipment)

	api.GET("/notifications", h.ListNotifications)
	api.POST("/notifications/:id/read", h.MarkNotificationRead)

	api.GET("/reports/dashboard", h.Dashboard)
	api.GET("/reports/annual/:year", h.AnnualReport)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("actor_id", c.GetHeader(handlers.HeaderActorID)))
	}
}
