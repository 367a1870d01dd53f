package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

type equipmentBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// RegisterEquipment handles POST /equipment
func (h *Handler) RegisterEquipment(c *gin.Context) {
	var body equipmentBody
	if !h.bind(c, &body) {
		return
	}

	e, err := services.RegisterEquipment(c.Request.Context(), h.store, h.rt, actorFrom(c), services.RegisterEquipmentRequest{
		Name:        body.Name,
		Description: body.Description,
		Quantity:    body.Quantity,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// ListEquipment handles GET /equipment
func (h *Handler) ListEquipment(c *gin.Context) {
	items, err := services.ListEquipment(c.Request.Context(), h.store)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type equipmentMaintenanceBody struct {
	UnderMaintenance bool `json:"under_maintenance"`
}

// SetEquipmentMaintenance handles POST /equipment/:id/maintenance
func (h *Handler) SetEquipmentMaintenance(c *gin.Context) {
	var body equipmentMaintenanceBody
	if !h.bind(c, &body) {
		return
	}

	e, err := services.SetEquipmentMaintenance(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"), body.UnderMaintenance)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

type loanBody struct {
	EquipmentID string `json:"equipment_id"`
	Quantity    int    `json:"quantity"`
}

// LendEquipment handles POST /reservations/:id/loans
func (h *Handler) LendEquipment(c *gin.Context) {
	var body loanBody
	if !h.bind(c, &body) {
		return
	}

	loan, err := services.LendEquipment(c.Request.Context(), h.store, h.rt, actorFrom(c), services.LendEquipmentRequest{
		ReservationID: c.Param("id"),
		EquipmentID:   body.EquipmentID,
		Quantity:      body.Quantity,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

// ListReservationLoans handles GET /reservations/:id/loans
func (h *Handler) ListReservationLoans(c *gin.Context) {
	loans, err := services.ListEquipmentLoans(c.Request.Context(), h.store, actorFrom(c), db.EquipmentLoanFilter{
		ReservationID: c.Param("id"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

// ListLoans handles GET /loans?outstanding=true&equipment_id=
func (h *Handler) ListLoans(c *gin.Context) {
	outstanding := false
	if v := c.Query("outstanding"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		outstanding = parsed
	}

	loans, err := services.ListEquipmentLoans(c.Request.Context(), h.store, actorFrom(c), db.EquipmentLoanFilter{
		EquipmentID:     c.Query("equipment_id"),
		OutstandingOnly: outstanding,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

// ReturnEquipment handles POST /loans/:id/return
func (h *Handler) ReturnEquipment(c *gin.Context) {
	loan, err := services.ReturnEquipment(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}
