package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/NotJalaAl00/Flint/internal/catalog"
	"github.com/NotJalaAl00/Flint/pkg/ctxmanage"
	"github.com/NotJalaAl00/Flint/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// ListStores returns every store owned by the caller.
func (h *Handler) ListStores(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	stores, err := h.cat.ListStoresForOwner(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("failed to list stores", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

func (h *Handler) CreateStore(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var req struct {
		StoreData catalog.NewStore `json:"storeData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}
	if err := h.validate.Struct(req.StoreData); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	store, err := h.cat.CreateStore(c.Request.Context(), claims.Subject, req.StoreData)
	if err != nil {
		slog.Error("failed to create store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"store": store})
}

func (h *Handler) UpdateStore(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	storeID := c.Param("id")

	store, err := h.storeOwnedBy(c, storeID, claims.Subject)
	if err != nil {
		return // response already written
	}

	var req struct {
		StoreData catalog.NewStore `json:"storeData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}
	if err := h.validate.Struct(req.StoreData); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	updated, err := h.cat.UpdateStore(c.Request.Context(), store.ID, req.StoreData)
	if err != nil {
		slog.Error("failed to update store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, storeID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"store": updated})
}

func (h *Handler) DeleteStore(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	storeID := c.Param("id")

	store, err := h.storeOwnedBy(c, storeID, claims.Subject)
	if err != nil {
		return
	}

	if err := h.cat.DeleteStore(c.Request.Context(), store.ID); err != nil {
		slog.Error("failed to delete store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, storeID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListProducts is public: anyone can browse a store's catalog.
func (h *Handler) ListProducts(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	storeID := c.Param("id")

	if _, err := h.cat.GetStore(c.Request.Context(), storeID); err != nil {
		if errors.Is(err, catalog.ErrStoreNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Store does not exist"})
			return
		}
		slog.Error("failed to load store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, storeID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	products, err := h.cat.ListProductsForStore(c.Request.Context(), storeID)
	if err != nil {
		slog.Error("failed to list products", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, storeID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) CreateProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	storeID := c.Param("id")

	store, err := h.storeOwnedBy(c, storeID, claims.Subject)
	if err != nil {
		return
	}

	var req struct {
		ProductData catalog.NewProduct `json:"productData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}
	if err := h.validate.Struct(req.ProductData); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	product, err := h.cat.CreateProduct(c.Request.Context(), store.ID, req.ProductData)
	if err != nil {
		slog.Error("failed to create product", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, storeID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	productID := c.Param("id")

	product, err := h.productOwnedBy(c, productID, claims.Subject)
	if err != nil {
		return
	}

	var req struct {
		ProductData catalog.NewProduct `json:"productData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}
	if err := h.validate.Struct(req.ProductData); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	updated, err := h.cat.UpdateProduct(c.Request.Context(), product.ID, req.ProductData)
	if err != nil {
		slog.Error("failed to update product", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ProductID, productID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": updated})
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	productID := c.Param("id")

	product, err := h.productOwnedBy(c, productID, claims.Subject)
	if err != nil {
		return
	}

	if err := h.cat.DeleteProduct(c.Request.Context(), product.ID); err != nil {
		slog.Error("failed to delete product", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ProductID, productID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// storeOwnedBy loads the store and enforces ownership, writing the error
// response itself so callers can simply return on error.
func (h *Handler) storeOwnedBy(c *gin.Context, storeID, ownerID string) (catalog.Store, error) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	store, err := h.cat.GetStore(c.Request.Context(), storeID)
	if err != nil {
		if errors.Is(err, catalog.ErrStoreNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Store does not exist"})
			return catalog.Store{}, err
		}
		slog.Error("failed to load store", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, storeID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return catalog.Store{}, err
	}
	if store.OwnerID != ownerID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return catalog.Store{}, errors.New("not store owner")
	}
	return store, nil
}

// productOwnedBy resolves a product through its store and enforces ownership.
func (h *Handler) productOwnedBy(c *gin.Context, productID, ownerID string) (catalog.Product, error) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	product, err := h.cat.GetProduct(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product does not exist"})
			return catalog.Product{}, err
		}
		slog.Error("failed to load product", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ProductID, productID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return catalog.Product{}, err
	}
	if _, err := h.storeOwnedBy(c, product.StoreID, ownerID); err != nil {
		return catalog.Product{}, err
	}
	return product, nil
}
