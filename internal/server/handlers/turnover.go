package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

// GetPreparation handles GET /preparations/:id
func (h *Handler) GetPreparation(c *gin.Context) {
	res, err := services.GetPreparation(c.Request.Context(), h.store, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetPreparationByReservation handles GET /reservations/:id/preparation
func (h *Handler) GetPreparationByReservation(c *gin.Context) {
	res, err := services.GetPreparationByReservation(c.Request.Context(), h.store, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type assignBody struct {
	OperatorID string `json:"operator_id"`
}

// AssignPreparation handles POST /preparations/:id/assign
func (h *Handler) AssignPreparation(c *gin.Context) {
	var body assignBody
	if !h.bind(c, &body) {
		return
	}

	rec, err := services.AssignPreparation(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"), body.OperatorID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type progressBody struct {
	Completions  map[string]bool `json:"completions"`
	Observations string          `json:"observations"`
}

// UpdateProgress handles POST /preparations/:id/progress
func (h *Handler) UpdateProgress(c *gin.Context) {
	var body progressBody
	if !h.bind(c, &body) {
		return
	}

	res, err := services.UpdateProgress(c.Request.Context(), h.store, h.rt, actorFrom(c), services.UpdateProgressRequest{
		PreparationID: c.Param("id"),
		Completions:   body.Completions,
		Observations:  body.Observations,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type completeBody struct {
	Observations string `json:"observations"`
}

// CompletePreparation handles POST /preparations/:id/complete
func (h *Handler) CompletePreparation(c *gin.Context) {
	var body completeBody
	if c.Request.ContentLength > 0 && !h.bind(c, &body) {
		return
	}

	res, err := services.CompletePreparation(c.Request.Context(), h.store, h.rt, actorFrom(c), services.CompletePreparationRequest{
		PreparationID: c.Param("id"),
		Observations:  body.Observations,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type observationBody struct {
	ChecklistItemID string              `json:"checklist_item_id"`
	Quantity        int                 `json:"quantity"`
	Condition       model.ItemCondition `json:"condition"`
}

type handoverBody struct {
	Items []observationBody `json:"items"`
	Notes string            `json:"notes"`
}

func (b handoverBody) request(reservationID string) services.HandoverRequest {
	req := services.HandoverRequest{ReservationID: reservationID, Notes: b.Notes}
	for _, item := range b.Items {
		req.Items = append(req.Items, services.ItemObservation{
			ChecklistItemID: item.ChecklistItemID,
			Quantity:        item.Quantity,
			Condition:       item.Condition,
		})
	}
	return req
}

type deliveryResponse struct {
	Record *model.DeliveryRecord `json:"record"`
	Total  decimal.Decimal       `json:"total"`
}

// GetDeliveryRecord handles GET /reservations/:id/delivery
func (h *Handler) GetDeliveryRecord(c *gin.Context) {
	rec, total, err := services.GetDeliveryRecord(c.Request.Context(), h.store, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, deliveryResponse{Record: rec, Total: total})
}

// EnsureDeliveryRecord handles POST /reservations/:id/delivery
func (h *Handler) EnsureDeliveryRecord(c *gin.Context) {
	rec, err := services.EnsureDeliveryRecord(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CheckIn handles POST /reservations/:id/check-in
func (h *Handler) CheckIn(c *gin.Context) {
	var body handoverBody
	if c.Request.ContentLength > 0 && !h.bind(c, &body) {
		return
	}

	rec, err := services.CheckIn(c.Request.Context(), h.store, h.rt, actorFrom(c), body.request(c.Param("id")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CheckOut handles POST /reservations/:id/check-out
func (h *Handler) CheckOut(c *gin.Context) {
	var body handoverBody
	if c.Request.ContentLength > 0 && !h.bind(c, &body) {
		return
	}

	res, err := services.CheckOut(c.Request.Context(), h.store, h.rt, actorFrom(c), body.request(c.Param("id")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CustomerConfirmDelivery handles POST /reservations/:id/delivery/confirm
func (h *Handler) CustomerConfirmDelivery(c *gin.Context) {
	rec, err := services.CustomerConfirmDelivery(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CustomerConfirmReturn handles POST /reservations/:id/return/confirm
func (h *Handler) CustomerConfirmReturn(c *gin.Context) {
	rec, err := services.CustomerConfirmReturn(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type raiseBody struct {
	CabinID       string `json:"cabin_id"`
	PreparationID string `json:"preparation_id"`
	Description   string `json:"description"`
	Critical      bool   `json:"critical"`
}

// RaiseMissingItem handles POST /missing-items
func (h *Handler) RaiseMissingItem(c *gin.Context) {
	var body raiseBody
	if !h.bind(c, &body) {
		return
	}

	report, err := services.RaiseMissingItem(c.Request.Context(), h.store, h.rt, actorFrom(c), services.RaiseMissingItemRequest{
		CabinID:       body.CabinID,
		PreparationID: body.PreparationID,
		Description:   body.Description,
		Critical:      body.Critical,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// ListMissingItemReports handles GET /missing-items?cabin_id=&preparation_id=&status=&critical=
func (h *Handler) ListMissingItemReports(c *gin.Context) {
	filter := db.MissingItemFilter{
		CabinID:       c.Query("cabin_id"),
		PreparationID: c.Query("preparation_id"),
	}
	for _, s := range c.QueryArray("status") {
		filter.Statuses = append(filter.Statuses, model.ReportStatus(s))
	}
	if v := c.Query("critical"); v != "" {
		critical, err := strconv.ParseBool(v)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		filter.CriticalOnly = critical
	}

	reports, err := services.ListMissingItemReports(c.Request.Context(), h.store, actorFrom(c), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	if reports == nil {
		reports = []model.MissingItemReport{}
	}
	c.JSON(http.StatusOK, reports)
}

// AcknowledgeMissingItem handles POST /missing-items/:id/acknowledge
func (h *Handler) AcknowledgeMissingItem(c *gin.Context) {
	report, err := services.AcknowledgeMissingItem(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type resolveBody struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// ResolveMissingItem handles POST /missing-items/:id/resolve
func (h *Handler) ResolveMissingItem(c *gin.Context) {
	var body resolveBody
	if c.Request.ContentLength > 0 && !h.bind(c, &body) {
		return
	}

	report, err := services.ResolveMissingItem(c.Request.Context(), h.store, h.rt, actorFrom(c), services.ResolveMissingItemRequest{
		ReportID:        c.Param("id"),
		ResolutionNotes: body.ResolutionNotes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
