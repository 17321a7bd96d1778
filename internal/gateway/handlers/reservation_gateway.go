package handlers

import (
	"net/http"
	"strconv"
	"time"

	"restro-system/internal/services/tables"

	"github.com/gin-gonic/gin"
)

type ReservationHTTPHandler struct {
	tables *tables.Service
}

func NewReservationHTTPHandler(tableService *tables.Service) *ReservationHTTPHandler {
	return &ReservationHTTPHandler{tables: tableService}
}

// Request structs
type CreateReservationRequest struct {
	TableID         uint      `json:"table_id" binding:"required"`
	CustomerName    string    `json:"customer_name" binding:"required"`
	ReservationTime time.Time `json:"reservation_time" binding:"required"`
	// Capacity is the party size. party_size is accepted as an alias.
	Capacity  *int `json:"capacity,omitempty"`
	PartySize *int `json:"party_size,omitempty"`
}

// partySize resolves capacity and its alias. Zero means no size was given.
func (r CreateReservationRequest) partySize() (int, bool) {
	switch {
	case r.Capacity != nil && r.PartySize != nil:
		return *r.Capacity, *r.Capacity == *r.PartySize
	case r.Capacity != nil:
		return *r.Capacity, true
	case r.PartySize != nil:
		return *r.PartySize, true
	}
	return 0, true
}

type UpdateReservationRequest struct {
	CustomerName    *string    `json:"customer_name,omitempty"`
	ReservationTime *time.Time `json:"reservation_time,omitempty"`
}

// Query structs
type ListReservationsQuery struct {
	Page        int   `form:"page,default=1"`
	PageSize    int   `form:"page_size,default=10"`
	TableID     *uint `form:"table_id,omitempty"`
	IsConfirmed *bool `form:"is_confirmed,omitempty"`
}

func (h *ReservationHTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reservations := rg.Group("/reservations")
	{
		reservations.GET("", h.ListReservations)
		reservations.POST("", h.CreateReservation)
		reservations.GET("/available-tables", h.ListAvailableTables)
		reservations.GET("/:id", h.GetReservation)
		reservations.PATCH("/:id", h.UpdateReservation)
		reservations.DELETE("/:id", h.DeleteReservation)
		reservations.POST("/:id/confirm", h.ConfirmReservation)
		reservations.POST("/:id/cancel", h.CancelReservation)
	}
}

func (h *ReservationHTTPHandler) CreateReservation(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	partySize, ok := req.partySize()
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse("capacity and party_size disagree"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reservation, err := h.tables.CreateReservation(ctx, tables.CreateReservationInput{
		TableID:         req.TableID,
		CustomerName:    req.CustomerName,
		ReservationTime: req.ReservationTime,
		PartySize:       partySize,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Reservation created successfully", reservation))
}

func (h *ReservationHTTPHandler) GetReservation(c *gin.Context) {
	id, ok := parseID(c, "id", "reservation")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reservation, err := h.tables.GetReservation(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Reservation retrieved successfully", reservation))
}

func (h *ReservationHTTPHandler) ListReservations(c *gin.Context) {
	var query ListReservationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	list, meta, err := h.tables.ListReservations(ctx, tables.ListReservationsFilter{
		TableID:     query.TableID,
		IsConfirmed: query.IsConfirmed,
		Page:        query.Page,
		PageSize:    query.PageSize,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Reservations retrieved successfully", list, meta))
}

func (h *ReservationHTTPHandler) UpdateReservation(c *gin.Context) {
	id, ok := parseID(c, "id", "reservation")
	if !ok {
		return
	}

	var req UpdateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reservation, err := h.tables.UpdateReservation(ctx, id, tables.UpdateReservationInput{
		CustomerName:    req.CustomerName,
		ReservationTime: req.ReservationTime,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Reservation updated successfully", reservation))
}

func (h *ReservationHTTPHandler) DeleteReservation(c *gin.Context) {
	id, ok := parseID(c, "id", "reservation")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.tables.DeleteReservation(ctx, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Reservation deleted successfully", nil))
}

func (h *ReservationHTTPHandler) ConfirmReservation(c *gin.Context) {
	id, ok := parseID(c, "id", "reservation")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reservation, err := h.tables.ConfirmReservation(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Reservation confirmed successfully", reservation))
}

func (h *ReservationHTTPHandler) CancelReservation(c *gin.Context) {
	id, ok := parseID(c, "id", "reservation")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reservation, err := h.tables.CancelReservation(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Reservation cancelled successfully", reservation))
}

// ListAvailableTables answers 404 rather than an empty list when nothing fits.
func (h *ReservationHTTPHandler) ListAvailableTables(c *gin.Context) {
	raw := c.Query("capacity")
	if raw == "" {
		c.JSON(http.StatusBadRequest, errorResponse("capacity query parameter is required"))
		return
	}
	capacity, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("capacity must be an integer"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	available, err := h.tables.ListAvailableTables(ctx, capacity)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if len(available) == 0 {
		c.JSON(http.StatusNotFound, errorResponse("No open tables available for the specified capacity."))
		return
	}

	c.JSON(http.StatusOK, successResponse("Available tables retrieved successfully", available))
}
