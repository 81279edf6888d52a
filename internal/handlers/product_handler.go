package handlers

import (
	"net/http"
	"strings"

	"artisan-marketplace/internal/middleware"
	"artisan-marketplace/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProductHandler handles the catalog
type ProductHandler struct {
	products CatalogAPI
	exporter ExportAPI
	pager    Pager
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products CatalogAPI, exporter ExportAPI, pager Pager) *ProductHandler {
	return &ProductHandler{products: products, exporter: exporter, pager: pagerOrDefault(pager)}
}

// StockRequest sets a product's stock level
type StockRequest struct {
	Stock *int `json:"stock" binding:"required,gte=0"`
}

// ModerateRequest sets a product's moderation status
type ModerateRequest struct {
	Status string `json:"status" binding:"required"`
}

// filters reads the shared catalog query parameters. Status is only honoured
// when allowStatus is set.
func (h *ProductHandler) filters(c *gin.Context, allowStatus bool) (models.ProductFilters, bool) {
	page, limit := h.pager.parse(c)
	f := models.ProductFilters{
		Query:    strings.TrimSpace(c.Query("search")),
		Category: strings.TrimSpace(c.Query("category")),
		SortBy:   c.Query("sort"),
		Page:     page,
		Limit:    limit,
	}
	if raw := c.Query("artisanId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "INVALID_QUERY", "artisanId must be a UUID")
			return f, false
		}
		f.ArtisanID = &id
	}
	var ok bool
	if f.MinPrice, ok = optionalFloat(c, "minPrice"); !ok {
		return f, false
	}
	if f.MaxPrice, ok = optionalFloat(c, "maxPrice"); !ok {
		return f, false
	}
	if allowStatus {
		for _, raw := range strings.Split(c.Query("status"), ",") {
			if raw = strings.ToUpper(strings.TrimSpace(raw)); raw != "" {
				f.Status = append(f.Status, models.ProductStatus(raw))
			}
		}
	}
	return f, true
}

// ListProducts lists active products
// @Summary Browse the catalog
// @Tags Products
// @Produce json
// @Param search query string false "Free text search"
// @Param category query string false "Category"
// @Param artisanId query string false "Artisan ID"
// @Param minPrice query number false "Minimum price"
// @Param maxPrice query number false "Maximum price"
// @Param sort query string false "newest, oldest, price_asc, price_desc or name"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {array} models.Product
// @Router /api/v1/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	f, ok := h.filters(c, false)
	if !ok {
		return
	}
	products, total, err := h.products.ListPublic(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, products, f.Page, f.Limit, total)
}

// GetProduct returns one product
// @Summary Get product
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.Product
// @Router /api/v1/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	// anonymous viewers get uuid.Nil and an empty role
	viewerID, _ := middleware.GetUserID(c)
	product, err := h.products.Get(c.Request.Context(), id, viewerID, middleware.GetUserRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, product)
}

// ListCategories returns categories with active product counts
// @Summary List categories
// @Tags Products
// @Produce json
// @Success 200 {array} models.CategoryCount
// @Router /api/v1/products/categories [get]
func (h *ProductHandler) ListCategories(c *gin.Context) {
	categories, err := h.products.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, categories)
}

// ListMyProducts lists the artisan's own products in any status
// @Summary List my products
// @Tags Artisan
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Success 200 {array} models.Product
// @Router /api/v1/artisan/products [get]
func (h *ProductHandler) ListMyProducts(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	f, ok := h.filters(c, true)
	if !ok {
		return
	}
	products, total, err := h.products.ListForArtisan(c.Request.Context(), userID, f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, products, f.Page, f.Limit, total)
}

// CreateProduct adds a product to the artisan's shop
// @Summary Create product
// @Tags Artisan
// @Accept json
// @Produce json
// @Param request body models.CreateProductRequest true "Product"
// @Success 201 {object} models.Product
// @Router /api/v1/artisan/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	product, err := h.products.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, product, "Product created")
}

// UpdateProduct edits a product
// @Summary Update product
// @Tags Artisan
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body models.UpdateProductRequest true "Fields to change"
// @Success 200 {object} models.Product
// @Router /api/v1/artisan/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	product, err := h.products.Update(c.Request.Context(), userID, role, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, product)
}

// UpdateStock sets the stock level
// @Summary Set stock
// @Tags Artisan
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body StockRequest true "New stock"
// @Success 200 {object} models.Product
// @Router /api/v1/artisan/products/{id}/stock [put]
func (h *ProductHandler) UpdateStock(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	product, err := h.products.UpdateStock(c.Request.Context(), userID, role, id, *req.Stock)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, product)
}

// DeleteProduct removes a product
// @Summary Delete product
// @Tags Artisan
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.SuccessResponse
// @Router /api/v1/artisan/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), userID, role, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Product deleted"})
}

// ListAllProducts is the admin moderation queue
// @Summary List all products
// @Tags Admin
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Success 200 {array} models.Product
// @Router /api/v1/admin/products [get]
func (h *ProductHandler) ListAllProducts(c *gin.Context) {
	f, ok := h.filters(c, true)
	if !ok {
		return
	}
	products, total, err := h.products.ListAll(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, products, f.Page, f.Limit, total)
}

// ModerateProduct approves, deactivates or rejects a product
// @Summary Moderate product
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body ModerateRequest true "ACTIVE, INACTIVE or REJECTED"
// @Success 200 {object} models.Product
// @Router /api/v1/admin/products/{id}/status [put]
func (h *ProductHandler) ModerateProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	status := models.ProductStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	product, err := h.products.Moderate(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, product)
}

// ExportProducts downloads the filtered catalog as a spreadsheet
// @Summary Export products
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /api/v1/admin/products/export [get]
func (h *ProductHandler) ExportProducts(c *gin.Context) {
	f, ok := h.filters(c, true)
	if !ok {
		return
	}
	data, filename, err := h.exporter.Products(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	sendAttachment(c, xlsxContentType, filename, data)
}
