package handlers

import (
	"net/http"
	"strconv"

	"restro-system/internal/services/billing"
	"restro-system/internal/services/orders"

	"github.com/gin-gonic/gin"
)

type OrderHTTPHandler struct {
	orders  *orders.Service
	billing *billing.Service
}

func NewOrderHTTPHandler(orderService *orders.Service, billingService *billing.Service) *OrderHTTPHandler {
	return &OrderHTTPHandler{
		orders:  orderService,
		billing: billingService,
	}
}

// Request structs
type CreateOrderRequest struct {
	TableID  uint   `json:"table_id" binding:"required"`
	WaiterID uint   `json:"waiter_id" binding:"required"`
	ItemIDs  []uint `json:"item_ids"`
}

type UpdateOrderRequest struct {
	TableID  *uint `json:"table_id,omitempty"`
	WaiterID *uint `json:"waiter_id,omitempty"`
}

type ReplaceOrderItemsRequest struct {
	ItemIDs         []uint `json:"item_ids"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`
}

type AddOrderItemsRequest struct {
	ItemIDs         []uint `json:"item_ids" binding:"required,min=1"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`
}

// Query structs
type ListOrdersQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=10"`
	Search   string `form:"search,omitempty"`
	TableID  *uint  `form:"table_id,omitempty"`
	WaiterID *uint  `form:"waiter_id,omitempty"`
}

type ListBillsQuery struct {
	Page     int   `form:"page,default=1"`
	PageSize int   `form:"page_size,default=10"`
	IsPaid   *bool `form:"is_paid,omitempty"`
}

func (h *OrderHTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	ordersGroup := rg.Group("/orders")
	{
		ordersGroup.GET("", h.ListOrders)
		ordersGroup.POST("", h.CreateOrder)
		ordersGroup.GET("/:id", h.GetOrder)
		ordersGroup.PATCH("/:id", h.UpdateOrder)
		ordersGroup.DELETE("/:id", h.DeleteOrder)
		ordersGroup.PUT("/:id/items", h.ReplaceOrderItems)
		ordersGroup.POST("/:id/items", h.AddOrderItems)
		ordersGroup.DELETE("/:id/items/:item_id", h.RemoveOrderItem)
		ordersGroup.GET("/:id/bill", h.GetOrderBill)
	}

	bills := rg.Group("/bills")
	{
		bills.GET("", h.ListBills)
		bills.GET("/:id", h.GetBill)
		bills.POST("/:id/pay", h.PayBill)
	}
}

// --- Order Handlers ---

func (h *OrderHTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.CreateOrder(ctx, orders.CreateOrderInput{
		TableID:  req.TableID,
		WaiterID: req.WaiterID,
		ItemIDs:  req.ItemIDs,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Order created successfully", orderToResponse(order)))
}

func (h *OrderHTTPHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order retrieved successfully", orderToResponse(order)))
}

func (h *OrderHTTPHandler) ListOrders(c *gin.Context) {
	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	list, meta, err := h.orders.ListOrders(ctx, orders.ListOrdersFilter{
		Search:   query.Search,
		TableID:  query.TableID,
		WaiterID: query.WaiterID,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved successfully", ordersToResponse(list), meta))
}

func (h *OrderHTTPHandler) UpdateOrder(c *gin.Context) {
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.UpdateOrder(ctx, id, orders.UpdateOrderInput{
		TableID:  req.TableID,
		WaiterID: req.WaiterID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order updated successfully", orderToResponse(order)))
}

func (h *OrderHTTPHandler) DeleteOrder(c *gin.Context) {
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.orders.DeleteOrder(ctx, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order deleted successfully", nil))
}

func (h *OrderHTTPHandler) ReplaceOrderItems(c *gin.Context) {
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}

	var req ReplaceOrderItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.UpdateOrderItems(ctx, id, req.ItemIDs, req.ExpectedVersion)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order items updated successfully", orderToResponse(order)))
}

func (h *OrderHTTPHandler) AddOrderItems(c *gin.Context) {
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}

	var req AddOrderItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.AddOrderItems(ctx, id, req.ItemIDs, req.ExpectedVersion)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order items added successfully", orderToResponse(order)))
}

func (h *OrderHTTPHandler) RemoveOrderItem(c *gin.Context) {
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}
	itemID, ok := parseID(c, "item_id", "menu item")
	if !ok {
		return
	}

	var expected *int
	if raw := c.Query("expected_version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("expected_version must be an integer"))
			return
		}
		expected = &v
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.orders.RemoveOrderItem(ctx, id, itemID, expected)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order item removed successfully", orderToResponse(order)))
}

// --- Bill Handlers ---

func (h *OrderHTTPHandler) GetOrderBill(c *gin.Context) {
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	bill, err := h.billing.GetBillByOrder(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Bill retrieved successfully", billToResponse(bill)))
}

func (h *OrderHTTPHandler) GetBill(c *gin.Context) {
	id, ok := parseID(c, "id", "bill")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	bill, err := h.billing.GetBill(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Bill retrieved successfully", billToResponse(bill)))
}

func (h *OrderHTTPHandler) ListBills(c *gin.Context) {
	var query ListBillsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	bills, meta, err := h.billing.ListBills(ctx, billing.ListBillsFilter{
		IsPaid:   query.IsPaid,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Bills retrieved successfully", billsToResponse(bills), meta))
}

func (h *OrderHTTPHandler) PayBill(c *gin.Context) {
	id, ok := parseID(c, "id", "bill")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	bill, err := h.billing.Pay(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Bill paid successfully", billToResponse(bill)))
}
