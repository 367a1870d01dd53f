package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) now() time.Time {
	if h.rt.Now != nil {
		return h.rt.Now()
	}
	return time.Now()
}

// ListCabins handles GET /cabins
func (h *Handler) ListCabins(c *gin.Context) {
	cabins, err := services.ListCabins(c.Request.Context(), h.store)
	if err != nil {
		h.fail(c, err)
		return
	}
	if cabins == nil {
		cabins = []model.Cabin{}
	}
	c.JSON(http.StatusOK, cabins)
}

// GetCabin handles GET /cabins/:id
func (h *Handler) GetCabin(c *gin.Context) {
	cabin, err := services.GetCabin(c.Request.Context(), h.store, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cabin)
}

type registerCabinBody struct {
	Name         string          `json:"name"`
	Capacity     int             `json:"capacity"`
	NightlyPrice decimal.Decimal `json:"nightly_price"`
}

// RegisterCabin handles POST /cabins
func (h *Handler) RegisterCabin(c *gin.Context) {
	var body registerCabinBody
	if !h.bind(c, &body) {
		return
	}

	cabin, err := services.RegisterCabin(c.Request.Context(), h.store, h.rt, actorFrom(c), services.RegisterCabinRequest{
		Name:         body.Name,
		Capacity:     body.Capacity,
		NightlyPrice: body.NightlyPrice,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cabin)
}

// ListChecklist handles GET /cabins/:id/checklist
func (h *Handler) ListChecklist(c *gin.Context) {
	items, err := services.ListChecklist(c.Request.Context(), h.store, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if items == nil {
		items = []model.ChecklistItem{}
	}
	c.JSON(http.StatusOK, items)
}

// ListPreparationTasks handles GET /tasks
func (h *Handler) ListPreparationTasks(c *gin.Context) {
	tasks, err := services.ListPreparationTasks(c.Request.Context(), h.store)
	if err != nil {
		h.fail(c, err)
		return
	}
	if tasks == nil {
		tasks = []model.PreparationTask{}
	}
	c.JSON(http.StatusOK, tasks)
}

// SeedCatalogs handles POST /catalogs/seed
func (h *Handler) SeedCatalogs(c *gin.Context) {
	res, err := services.SeedCatalogs(c.Request.Context(), h.store, h.rt, actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type registerCustomerBody struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Type    string `json:"type"`
}

// RegisterCustomer handles POST /customers
func (h *Handler) RegisterCustomer(c *gin.Context) {
	var body registerCustomerBody
	if !h.bind(c, &body) {
		return
	}

	customer, err := services.RegisterCustomer(c.Request.Context(), h.store, h.rt, actorFrom(c), services.RegisterCustomerRequest(body))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// GetCustomer handles GET /customers/:id
func (h *Handler) GetCustomer(c *gin.Context) {
	customer, err := services.GetCustomer(c.Request.Context(), h.store, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

type scheduleBody struct {
	CabinID       string                `json:"cabin_id"`
	Kind          model.MaintenanceKind `json:"kind"`
	Description   string                `json:"description"`
	ScheduledDate string                `json:"scheduled_date"`
}

// ScheduleMaintenance handles POST /maintenance
func (h *Handler) ScheduleMaintenance(c *gin.Context) {
	var body scheduleBody
	if !h.bind(c, &body) {
		return
	}
	scheduled, err := optionalDay(body.ScheduledDate)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	m, err := services.ScheduleMaintenance(c.Request.Context(), h.store, h.rt, actorFrom(c), services.ScheduleMaintenanceRequest{
		CabinID:       body.CabinID,
		Kind:          body.Kind,
		Description:   body.Description,
		ScheduledDate: scheduled,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// StartMaintenance handles POST /maintenance/:id/start
func (h *Handler) StartMaintenance(c *gin.Context) {
	m, err := services.StartMaintenance(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// FinalizeMaintenance handles POST /maintenance/:id/finalize
func (h *Handler) FinalizeMaintenance(c *gin.Context) {
	m, err := services.FinalizeMaintenance(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// CancelMaintenance handles POST /maintenance/:id/cancel
func (h *Handler) CancelMaintenance(c *gin.Context) {
	m, err := services.CancelMaintenance(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// ListMaintenance handles GET /cabins/:id/maintenance
func (h *Handler) ListMaintenance(c *gin.Context) {
	windows, err := services.ListMaintenance(c.Request.Context(), h.store, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if windows == nil {
		windows = []model.MaintenanceWindow{}
	}
	c.JSON(http.StatusOK, windows)
}

// PlanMaintenance handles POST /maintenance/plan using the configured plans
func (h *Handler) PlanMaintenance(c *gin.Context) {
	windows, err := services.PlanMaintenance(c.Request.Context(), h.store, h.rt, actorFrom(c), h.plans, h.horizonDays)
	if err != nil {
		h.fail(c, err)
		return
	}
	if windows == nil {
		windows = []model.MaintenanceWindow{}
	}
	c.JSON(http.StatusOK, windows)
}

type paymentBody struct {
	Amount     decimal.Decimal     `json:"amount"`
	Method     model.PaymentMethod `json:"method"`
	PaidOn     string              `json:"paid_on"`
	ReceiptRef string              `json:"receipt_ref"`
}

// RecordPayment handles POST /reservations/:id/payments
func (h *Handler) RecordPayment(c *gin.Context) {
	var body paymentBody
	if !h.bind(c, &body) {
		return
	}
	paidOn, err := optionalDay(body.PaidOn)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	p, err := services.RecordPayment(c.Request.Context(), h.store, h.rt, actorFrom(c), services.RecordPaymentRequest{
		ReservationID: c.Param("id"),
		Amount:        body.Amount,
		Method:        body.Method,
		PaidOn:        paidOn,
		ReceiptRef:    body.ReceiptRef,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListPayments handles GET /reservations/:id/payments
func (h *Handler) ListPayments(c *gin.Context) {
	summary, err := services.ListPayments(c.Request.Context(), h.store, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type surveyBody struct {
	Rating   int    `json:"rating"`
	Comments string `json:"comments"`
}

// SubmitSurvey handles POST /reservations/:id/survey
func (h *Handler) SubmitSurvey(c *gin.Context) {
	var body surveyBody
	if !h.bind(c, &body) {
		return
	}

	s, err := services.SubmitSurvey(c.Request.Context(), h.store, h.rt, actorFrom(c), services.SubmitSurveyRequest{
		ReservationID: c.Param("id"),
		Rating:        body.Rating,
		Comments:      body.Comments,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// ListNotifications handles GET /notifications?unread=true
func (h *Handler) ListNotifications(c *gin.Context) {
	unread := c.Query("unread") == "true"

	list, err := services.ListNotifications(c.Request.Context(), h.store, actorFrom(c), unread)
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	c.JSON(http.StatusOK, list)
}

// MarkNotificationRead handles POST /notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := services.MarkNotificationRead(c.Request.Context(), h.store, actorFrom(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Dashboard handles GET /reports/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := reports.BuildDashboard(c.Request.Context(), h.store, actorFrom(c), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// AnnualReport handles GET /reports/annual/:year, as XLSX when ?format=xlsx
func (h *Handler) AnnualReport(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		h.badRequest(c, err)
		return
	}

	report, err := reports.BuildAnnualReport(c.Request.Context(), h.store, actorFrom(c), year)
	if err != nil {
		h.fail(c, err)
		return
	}

	if c.Query("format") != "xlsx" {
		c.JSON(http.StatusOK, report)
		return
	}

	var buf bytes.Buffer
	if err := reports.WriteAnnualXLSX(&buf, report); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="annual_report_%d.xlsx"`, year))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
