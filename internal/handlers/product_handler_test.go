package handlers

import (
	"net/http"
	"testing"

	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListProducts_Handler(t *testing.T) {
	t.Run("query mapped to filters", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		router := setupTestRouter()
		router.GET("/products", NewProductHandler(catalog, nil, Pager{}).ListProducts)

		artisanID := uuid.New()
		minPrice, maxPrice := 500.0, 2500.0
		catalog.On("ListPublic", mock.Anything, models.ProductFilters{
			Query:     "brass lamp",
			Category:  "Metalwork",
			ArtisanID: &artisanID,
			MinPrice:  &minPrice,
			MaxPrice:  &maxPrice,
			SortBy:    "price_asc",
			Page:      1,
			Limit:     20,
		}).Return([]models.Product{{Name: "Brass Diya"}}, int64(1), nil)

		w := doJSON(router, http.MethodGet,
			"/products?search=brass+lamp&category=Metalwork&artisanId="+artisanID.String()+"&minPrice=500&maxPrice=2500&sort=price_asc&status=DRAFT", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode(t, w)
		assert.Contains(t, string(env.Data), "Brass Diya")
		assert.Equal(t, int64(1), env.Pagination.Total)
		catalog.AssertExpectations(t)
	})

	t.Run("bad price", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/products", NewProductHandler(new(MockCatalogAPI), nil, Pager{}).ListProducts)

		w := doJSON(router, http.MethodGet, "/products?minPrice=cheap", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_QUERY", decode(t, w).Error.Code)
	})

	t.Run("bad artisan id", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/products", NewProductHandler(new(MockCatalogAPI), nil, Pager{}).ListProducts)

		w := doJSON(router, http.MethodGet, "/products?artisanId=42", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetProduct_Handler(t *testing.T) {
	id := uuid.New()

	t.Run("anonymous viewer", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		router := setupTestRouter()
		router.GET("/products/:id", NewProductHandler(catalog, nil, Pager{}).GetProduct)

		catalog.On("Get", mock.Anything, id, uuid.Nil, models.Role("")).Return(nil, services.ErrNotFound)

		w := doJSON(router, http.MethodGet, "/products/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("owner sees draft", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		owner := uuid.New()
		router := setupTestRouter()
		router.GET("/products/:id", asUser(owner, models.RoleArtisan), NewProductHandler(catalog, nil, Pager{}).GetProduct)

		catalog.On("Get", mock.Anything, id, owner, models.RoleArtisan).
			Return(&models.Product{ID: id, Status: models.ProductStatusDraft}, nil)

		w := doJSON(router, http.MethodGet, "/products/"+id.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(decode(t, w).Data), `"DRAFT"`)
	})
}

func TestListCategories_Handler(t *testing.T) {
	catalog := new(MockCatalogAPI)
	router := setupTestRouter()
	router.GET("/products/categories", NewProductHandler(catalog, nil, Pager{}).ListCategories)

	catalog.On("Categories", mock.Anything).Return([]models.CategoryCount{{Category: "Pottery", Count: 12}}, nil)

	w := doJSON(router, http.MethodGet, "/products/categories", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":12`)
}

func TestArtisanProducts_Handler(t *testing.T) {
	artisan := uuid.New()
	id := uuid.New()

	newRouter := func(catalog *MockCatalogAPI) http.Handler {
		router := setupTestRouter()
		h := NewProductHandler(catalog, nil, Pager{})
		g := router.Group("/artisan", asUser(artisan, models.RoleArtisan))
		g.GET("/products", h.ListMyProducts)
		g.POST("/products", h.CreateProduct)
		g.PUT("/products/:id", h.UpdateProduct)
		g.PUT("/products/:id/stock", h.UpdateStock)
		g.DELETE("/products/:id", h.DeleteProduct)
		return router
	}

	t.Run("list own with status filter", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		catalog.On("ListForArtisan", mock.Anything, artisan, models.ProductFilters{
			Status: []models.ProductStatus{models.ProductStatusDraft, models.ProductStatusRejected},
			Page:   1,
			Limit:  20,
		}).Return([]models.Product{}, int64(0), nil)

		w := doJSON(newRouter(catalog), http.MethodGet, "/artisan/products?status=draft,+rejected", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		catalog.AssertExpectations(t)
	})

	t.Run("create", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		req := models.CreateProductRequest{Name: "Pattachitra scroll", Category: "Painting", Price: 3200, Stock: 2}
		catalog.On("Create", mock.Anything, artisan, req).Return(&models.Product{ID: id, Name: req.Name}, nil)

		w := doJSON(newRouter(catalog), http.MethodPost, "/artisan/products", req)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("create rejects zero price", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		w := doJSON(newRouter(catalog), http.MethodPost, "/artisan/products", map[string]interface{}{"name": "Scroll", "category": "Painting", "price": 0})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("create unverified", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		req := models.CreateProductRequest{Name: "Scroll", Category: "Painting", Price: 10, Publish: true}
		catalog.On("Create", mock.Anything, artisan, req).Return(nil, services.ErrArtisanNotVerified)

		w := doJSON(newRouter(catalog), http.MethodPost, "/artisan/products", req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "ARTISAN_NOT_VERIFIED", decode(t, w).Error.Code)
	})

	t.Run("update someone else's", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		price := 99.0
		catalog.On("Update", mock.Anything, artisan, models.RoleArtisan, id, models.UpdateProductRequest{Price: &price}).
			Return(nil, services.ErrForbidden)

		w := doJSON(newRouter(catalog), http.MethodPut, "/artisan/products/"+id.String(), map[string]float64{"price": 99})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("stock", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		catalog.On("UpdateStock", mock.Anything, artisan, models.RoleArtisan, id, 0).Return(&models.Product{ID: id}, nil)

		w := doJSON(newRouter(catalog), http.MethodPut, "/artisan/products/"+id.String()+"/stock", map[string]int{"stock": 0})
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(newRouter(catalog), http.MethodPut, "/artisan/products/"+id.String()+"/stock", map[string]int{"stock": -1})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = doJSON(newRouter(catalog), http.MethodPut, "/artisan/products/"+id.String()+"/stock", map[string]int{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		catalog.On("Delete", mock.Anything, artisan, models.RoleArtisan, id).Return(nil)

		w := doJSON(newRouter(catalog), http.MethodDelete, "/artisan/products/"+id.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAdminProducts_Handler(t *testing.T) {
	admin := uuid.New()
	id := uuid.New()

	t.Run("moderate normalizes status", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		router := setupTestRouter()
		router.PUT("/admin/products/:id/status", asUser(admin, models.RoleAdmin), NewProductHandler(catalog, nil, Pager{}).ModerateProduct)

		catalog.On("Moderate", mock.Anything, id, models.ProductStatusRejected).
			Return(&models.Product{ID: id, Status: models.ProductStatusRejected}, nil)

		w := doJSON(router, http.MethodPut, "/admin/products/"+id.String()+"/status", ModerateRequest{Status: " rejected "})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("list all", func(t *testing.T) {
		catalog := new(MockCatalogAPI)
		router := setupTestRouter()
		router.GET("/admin/products", NewProductHandler(catalog, nil, Pager{}).ListAllProducts)

		catalog.On("ListAll", mock.Anything, models.ProductFilters{
			Status: []models.ProductStatus{models.ProductStatusDraft}, Page: 1, Limit: 20,
		}).Return([]models.Product{{Name: "Pending"}}, int64(1), nil)

		w := doJSON(router, http.MethodGet, "/admin/products?status=DRAFT", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("export", func(t *testing.T) {
		exporter := new(MockExportAPI)
		router := setupTestRouter()
		router.GET("/admin/products/export", NewProductHandler(new(MockCatalogAPI), exporter, Pager{}).ExportProducts)

		exporter.On("Products", mock.Anything, mock.AnythingOfType("models.ProductFilters")).
			Return([]byte("PK\x03\x04"), "products-20240510.xlsx", nil)

		w := doJSON(router, http.MethodGet, "/admin/products/export?category=Pottery", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "products-20240510.xlsx")
		assert.Equal(t, "PK\x03\x04", w.Body.String())
	})
}

func TestCatalogHidesArtisanContact_Handler(t *testing.T) {
	id := uuid.New()
	artisan := &models.ArtisanProfile{
		ID:        uuid.New(),
		Name:      "Meera",
		ShopName:  "Meera Crafts",
		City:      "Jaipur",
		Craft:     "Blue pottery",
		AvatarURL: "https://res.cloudinary.com/demo/image/upload/meera.png",
	}
	product := models.Product{ID: id, Name: "Blue Pottery Vase", Status: models.ProductStatusActive, Artisan: artisan}

	catalog := new(MockCatalogAPI)
	h := NewProductHandler(catalog, nil, Pager{})
	router := setupTestRouter()
	router.GET("/products", h.ListProducts)
	router.GET("/products/:id", h.GetProduct)

	catalog.On("ListPublic", mock.Anything, mock.Anything).Return([]models.Product{product}, int64(1), nil)
	catalog.On("Get", mock.Anything, id, uuid.Nil, models.Role("")).Return(&product, nil)

	for _, path := range []string{"/products", "/products/" + id.String()} {
		w := doJSON(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)

		body := w.Body.String()
		assert.Contains(t, body, `"shopName":"Meera Crafts"`, path)
		assert.Contains(t, body, `"craft":"Blue pottery"`, path)
		for _, field := range []string{`"email"`, `"phone"`, `"isVerified"`, `"lastLoginAt"`, `"role"`} {
			assert.NotContains(t, body, field, path)
		}
	}
}
