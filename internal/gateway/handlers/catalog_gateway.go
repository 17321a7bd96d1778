package handlers

import (
	"net/http"

	"restro-system/internal/database/models"
	"restro-system/internal/services/catalog"
	"restro-system/internal/services/tables"

	"github.com/gin-gonic/gin"
)

type CatalogHTTPHandler struct {
	catalog *catalog.Service
	tables  *tables.Service
}

func NewCatalogHTTPHandler(catalogService *catalog.Service, tableService *tables.Service) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{
		catalog: catalogService,
		tables:  tableService,
	}
}

// Request structs
type TableRequest struct {
	Number   int `json:"number" binding:"required,gt=0"`
	Capacity int `json:"capacity" binding:"required,gt=0"`
}

type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type MenuItemRequest struct {
	Name       string `json:"name" binding:"required"`
	Price      string `json:"price" binding:"required"`
	CategoryID uint   `json:"category_id" binding:"required"`
}

type WaiterRequest struct {
	Name string `json:"name" binding:"required"`
	Age  int    `json:"age" binding:"gte=0"`
}

type ReceptionRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactNumber string `json:"contact_number" binding:"required"`
}

// Query structs
type ListTablesQuery struct {
	Page        int    `form:"page,default=1"`
	PageSize    int    `form:"page_size,default=10"`
	Status      string `form:"status,omitempty"`
	MinCapacity int    `form:"min_capacity,omitempty"`
}

type ListMenuItemsQuery struct {
	Page       int    `form:"page,default=1"`
	Size       int    `form:"size,default=10"`
	CategoryID uint   `form:"category_id,omitempty"`
	Search     string `form:"search,omitempty"`
}

func (h *CatalogHTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tablesGroup := rg.Group("/tables")
	{
		tablesGroup.GET("", h.ListTables)
		tablesGroup.POST("", h.CreateTable)
		tablesGroup.GET("/:id", h.GetTable)
		tablesGroup.PUT("/:id", h.UpdateTable)
		tablesGroup.DELETE("/:id", h.DeleteTable)
		tablesGroup.POST("/:id/seat", h.SeatTable)
		tablesGroup.POST("/:id/release", h.ReleaseTable)
	}

	categories := rg.Group("/categories")
	{
		categories.GET("", h.ListCategories)
		categories.POST("", h.CreateCategory)
		categories.GET("/:id", h.GetCategory)
		categories.PUT("/:id", h.UpdateCategory)
		categories.DELETE("/:id", h.DeleteCategory)
	}

	menu := rg.Group("/menu-items")
	{
		menu.GET("", h.ListMenuItems)
		menu.POST("", h.CreateMenuItem)
		menu.GET("/:id", h.GetMenuItem)
		menu.PUT("/:id", h.UpdateMenuItem)
		menu.DELETE("/:id", h.DeleteMenuItem)
	}

	waiters := rg.Group("/waiters")
	{
		waiters.GET("", h.ListWaiters)
		waiters.POST("", h.CreateWaiter)
		waiters.GET("/:id", h.GetWaiter)
		waiters.PUT("/:id", h.UpdateWaiter)
		waiters.DELETE("/:id", h.DeleteWaiter)
	}

	receptions := rg.Group("/receptions")
	{
		receptions.GET("", h.ListReceptions)
		receptions.POST("", h.CreateReception)
		receptions.GET("/:id", h.GetReception)
		receptions.PUT("/:id", h.UpdateReception)
		receptions.DELETE("/:id", h.DeleteReception)
	}
}

// --- Table Handlers ---

func (h *CatalogHTTPHandler) CreateTable(c *gin.Context) {
	var req TableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	table, err := h.catalog.CreateTable(ctx, catalog.TableInput{Number: req.Number, Capacity: req.Capacity})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Table created successfully", table))
}

func (h *CatalogHTTPHandler) GetTable(c *gin.Context) {
	id, ok := parseID(c, "id", "table")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	table, err := h.catalog.GetTable(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Table retrieved successfully", table))
}

func (h *CatalogHTTPHandler) ListTables(c *gin.Context) {
	var query ListTablesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	filter := catalog.ListTablesFilter{
		MinCapacity: query.MinCapacity,
		Page:        query.Page,
		PageSize:    query.PageSize,
	}
	if query.Status != "" {
		st := models.TableStatus(query.Status)
		if !st.Valid() {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid table status: "+query.Status))
			return
		}
		filter.Status = &st
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	list, meta, err := h.catalog.ListTables(ctx, filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Tables retrieved successfully", list, meta))
}

func (h *CatalogHTTPHandler) UpdateTable(c *gin.Context) {
	id, ok := parseID(c, "id", "table")
	if !ok {
		return
	}

	var req TableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	table, err := h.catalog.UpdateTable(ctx, id, catalog.TableInput{Number: req.Number, Capacity: req.Capacity})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Table updated successfully", table))
}

func (h *CatalogHTTPHandler) DeleteTable(c *gin.Context) {
	id, ok := parseID(c, "id", "table")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.catalog.DeleteTable(ctx, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Table deleted successfully", nil))
}

func (h *CatalogHTTPHandler) SeatTable(c *gin.Context) {
	id, ok := parseID(c, "id", "table")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	table, err := h.tables.SeatTable(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Table seated successfully", table))
}

func (h *CatalogHTTPHandler) ReleaseTable(c *gin.Context) {
	id, ok := parseID(c, "id", "table")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	table, err := h.tables.ReleaseTable(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Table released successfully", table))
}

// --- Category Handlers ---

func (h *CatalogHTTPHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	category, err := h.catalog.CreateCategory(ctx, req.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Category created successfully", category))
}

func (h *CatalogHTTPHandler) GetCategory(c *gin.Context) {
	id, ok := parseID(c, "id", "category")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	category, err := h.catalog.GetCategory(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Category retrieved successfully", category))
}

func (h *CatalogHTTPHandler) ListCategories(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", categories))
}

func (h *CatalogHTTPHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id", "category")
	if !ok {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	category, err := h.catalog.UpdateCategory(ctx, id, req.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Category updated successfully", category))
}

func (h *CatalogHTTPHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id", "category")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.catalog.DeleteCategory(ctx, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Category deleted successfully", nil))
}

// --- Menu Item Handlers ---

func (h *CatalogHTTPHandler) CreateMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	item, err := h.catalog.CreateMenuItem(ctx, catalog.MenuItemInput{
		Name:       req.Name,
		Price:      req.Price,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Menu item created successfully", menuItemToResponse(*item)))
}

func (h *CatalogHTTPHandler) GetMenuItem(c *gin.Context) {
	id, ok := parseID(c, "id", "menu item")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	item, err := h.catalog.GetMenuItem(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Menu item retrieved successfully", menuItemToResponse(*item)))
}

func (h *CatalogHTTPHandler) ListMenuItems(c *gin.Context) {
	var query ListMenuItemsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.catalog.ListMenuItems(ctx, catalog.ListMenuItemsFilter{
		CategoryID: query.CategoryID,
		Search:     query.Search,
		Page:       query.Page,
		PageSize:   query.Size,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Menu items retrieved successfully", menuItemsToResponse(page.Items), page.Meta))
}

func (h *CatalogHTTPHandler) UpdateMenuItem(c *gin.Context) {
	id, ok := parseID(c, "id", "menu item")
	if !ok {
		return
	}

	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	item, err := h.catalog.UpdateMenuItem(ctx, id, catalog.MenuItemInput{
		Name:       req.Name,
		Price:      req.Price,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Menu item updated successfully", menuItemToResponse(*item)))
}

func (h *CatalogHTTPHandler) DeleteMenuItem(c *gin.Context) {
	id, ok := parseID(c, "id", "menu item")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.catalog.DeleteMenuItem(ctx, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Menu item deleted successfully", nil))
}

// --- Waiter Handlers ---

func (h *CatalogHTTPHandler) CreateWaiter(c *gin.Context) {
	var req WaiterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	waiter, err := h.catalog.CreateWaiter(ctx, catalog.WaiterInput{Name: req.Name, Age: req.Age})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Waiter created successfully", waiter))
}

func (h *CatalogHTTPHandler) GetWaiter(c *gin.Context) {
	id, ok := parseID(c, "id", "waiter")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	waiter, err := h.catalog.GetWaiter(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Waiter retrieved successfully", waiter))
}

func (h *CatalogHTTPHandler) ListWaiters(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	waiters, err := h.catalog.ListWaiters(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Waiters retrieved successfully", waiters))
}

func (h *CatalogHTTPHandler) UpdateWaiter(c *gin.Context) {
	id, ok := parseID(c, "id", "waiter")
	if !ok {
		return
	}

	var req WaiterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	waiter, err := h.catalog.UpdateWaiter(ctx, id, catalog.WaiterInput{Name: req.Name, Age: req.Age})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Waiter updated successfully", waiter))
}

func (h *CatalogHTTPHandler) DeleteWaiter(c *gin.Context) {
	id, ok := parseID(c, "id", "waiter")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.catalog.DeleteWaiter(ctx, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Waiter deleted successfully", nil))
}

// --- Reception Handlers ---

func (h *CatalogHTTPHandler) CreateReception(c *gin.Context) {
	var req ReceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reception, err := h.catalog.CreateReception(ctx, catalog.ReceptionInput{Name: req.Name, ContactNumber: req.ContactNumber})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Reception created successfully", reception))
}

func (h *CatalogHTTPHandler) GetReception(c *gin.Context) {
	id, ok := parseID(c, "id", "reception")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reception, err := h.catalog.GetReception(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Reception retrieved successfully", reception))
}

func (h *CatalogHTTPHandler) ListReceptions(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	receptions, err := h.catalog.ListReceptions(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Receptions retrieved successfully", receptions))
}

func (h *CatalogHTTPHandler) UpdateReception(c *gin.Context) {
	id, ok := parseID(c, "id", "reception")
	if !ok {
		return
	}

	var req ReceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reception, err := h.catalog.UpdateReception(ctx, id, catalog.ReceptionInput{Name: req.Name, ContactNumber: req.ContactNumber})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Reception updated successfully", reception))
}

func (h *CatalogHTTPHandler) DeleteReception(c *gin.Context) {
	id, ok := parseID(c, "id", "reception")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.catalog.DeleteReception(ctx, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Reception deleted successfully", nil))
}
