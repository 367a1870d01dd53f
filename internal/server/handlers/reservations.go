package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/db"
)

type createReservationBody struct {
	CustomerID string `json:"customer_id"`
	CabinID    string `json:"cabin_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Guests     int    `json:"guests"`
	Comments   string `json:"comments"`
}

// CreateReservation handles POST /reservations
func (h *Handler) CreateReservation(c *gin.Context) {
	var body createReservationBody
	if !h.bind(c, &body) {
		return
	}
	start, err := optionalDay(body.Start)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	end, err := optionalDay(body.End)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	r, err := services.CreateReservation(c.Request.Context(), h.store, h.rt, actorFrom(c), services.CreateReservationRequest{
		CustomerID: body.CustomerID,
		CabinID:    body.CabinID,
		Start:      start,
		End:        end,
		Guests:     body.Guests,
		Comments:   body.Comments,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// ListReservations handles GET /reservations?cabin_id=&customer_id=&status=&from=&to=
func (h *Handler) ListReservations(c *gin.Context) {
	filter := db.ReservationFilter{
		CabinID:    c.Query("cabin_id"),
		CustomerID: c.Query("customer_id"),
	}
	for _, s := range c.QueryArray("status") {
		status := model.ReservationStatus(s)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + s})
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	var err error
	if filter.StartFrom, err = optionalDayPtr(c.Query("from")); err != nil {
		h.badRequest(c, err)
		return
	}
	if filter.StartTo, err = optionalDayPtr(c.Query("to")); err != nil {
		h.badRequest(c, err)
		return
	}

	list, err := services.ListReservations(c.Request.Context(), h.store, h.rt, actorFrom(c), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []model.Reservation{}
	}
	c.JSON(http.StatusOK, list)
}

// GetReservation handles GET /reservations/:id
func (h *Handler) GetReservation(c *gin.Context) {
	r, err := services.GetReservation(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ConfirmReservation handles POST /reservations/:id/confirm
func (h *Handler) ConfirmReservation(c *gin.Context) {
	r, err := services.ConfirmReservation(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type cancelBody struct {
	Reason string `json:"reason"`
}

// CancelReservation handles POST /reservations/:id/cancel
func (h *Handler) CancelReservation(c *gin.Context) {
	var body cancelBody
	if c.Request.ContentLength > 0 && !h.bind(c, &body) {
		return
	}

	r, err := services.CancelReservation(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"), body.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// CustomerConfirmReservation handles POST /reservations/:id/customer-confirm
func (h *Handler) CustomerConfirmReservation(c *gin.Context) {
	res, err := services.CustomerConfirmReservation(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type reassignBody struct {
	CabinID string `json:"cabin_id"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Reason  string `json:"reason"`
}

// ReassignReservation handles POST /reservations/:id/reassign
func (h *Handler) ReassignReservation(c *gin.Context) {
	var body reassignBody
	if !h.bind(c, &body) {
		return
	}
	start, err := optionalDay(body.Start)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	end, err := optionalDay(body.End)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	r, err := services.ReassignReservation(c.Request.Context(), h.store, h.rt, actorFrom(c), services.ReassignRequest{
		ReservationID: c.Param("id"),
		CabinID:       body.CabinID,
		Start:         start,
		End:           end,
		Reason:        body.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// CompleteReservation handles POST /reservations/:id/complete
func (h *Handler) CompleteReservation(c *gin.Context) {
	r, err := services.CompleteReservation(c.Request.Context(), h.store, h.rt, actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// CheckAvailability handles GET /cabins/:id/availability?start=&end=
func (h *Handler) CheckAvailability(c *gin.Context) {
	start, err := model.ParseDay(c.Query("start"))
	if err != nil {
		h.badRequest(c, err)
		return
	}
	end, err := model.ParseDay(c.Query("end"))
	if err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := services.CheckAvailability(c.Request.Context(), h.store, c.Param("id"), start, end)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
