package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/NotJalaAl00/Flint/internal/catalog"
	"github.com/NotJalaAl00/Flint/internal/orders"
	"github.com/NotJalaAl00/Flint/internal/payments"
	"github.com/NotJalaAl00/Flint/pkg/ctxmanage"
	"github.com/NotJalaAl00/Flint/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// OrdersForUser lists everything the caller has bought.
func (h *Handler) OrdersForUser(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	list, err := h.o.ListForUser(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("failed to list user orders", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// OrdersForStore lists every order placed against any store the caller owns.
func (h *Handler) OrdersForStore(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	list, err := h.o.ListForStoreOwner(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("failed to list store orders", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// OrdersForProduct lists every order for products the caller sells.
func (h *Handler) OrdersForProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	list, err := h.o.ListForProductOwner(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("failed to list product orders", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// OrderByID returns a single order. Only the buyer may read it.
func (h *Handler) OrderByID(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	order, ok := h.loadOrder(c, c.Param("id"))
	if !ok {
		return
	}
	if order.UserID != claims.Subject {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// PlaceOrder creates an unpaid order, decrementing stock atomically. The
// store owner is mailed best-effort.
func (h *Handler) PlaceOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var req struct {
		ProductId string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductId == "" || req.Quantity <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	order, err := h.o.PlaceOrder(c.Request.Context(), claims.Subject, req.ProductId, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrProductNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product does not exist"})
		case errors.Is(err, orders.ErrInsufficientStock):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Not enough stock"})
		default:
			slog.Error("failed to place order", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		}
		return
	}

	if owner, store, perr := h.storeOwner(c, order.StoreID); perr == nil {
		h.notifyMail(traceId, owner.Email, "New order placed",
			fmt.Sprintf("A new order (%s) has been placed at your store %s. Check the app for more details.",
				order.ID, store.Name))
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// UpdateOrderStatus lets the store owner flip the delivered flag. The buyer
// is mailed the owner's contact details on delivery.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var req struct {
		Status *bool `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	order, ok := h.loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	owner, _, err := h.storeOwner(c, order.StoreID)
	if err != nil {
		slog.Error("failed to resolve store owner", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if owner.ID != claims.Subject {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	updated, err := h.o.SetDelivered(c.Request.Context(), order.ID, *req.Status)
	if err != nil {
		slog.Error("failed to update order status", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if *req.Status {
		if buyer, berr := h.u.GetUserByID(c.Request.Context(), order.UserID); berr == nil {
			h.notifyMail(traceId, buyer.Email, "Order delivered",
				fmt.Sprintf("Your order %s has been marked as delivered. For any issues contact %s at %s.",
					order.ID, owner.Name, owner.Email))
		}
	}

	c.JSON(http.StatusOK, gin.H{"order": updated})
}

// DeleteOrder lets the store owner cancel an order. The buyer is mailed
// best-effort.
func (h *Handler) DeleteOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	order, ok := h.loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	owner, store, err := h.storeOwner(c, order.StoreID)
	if err != nil {
		slog.Error("failed to resolve store owner", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if owner.ID != claims.Subject {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	if err := h.o.DeleteOrder(c.Request.Context(), order.ID); err != nil {
		slog.Error("failed to delete order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if buyer, berr := h.u.GetUserByID(c.Request.Context(), order.UserID); berr == nil {
		h.notifyMail(traceId, buyer.Email, "Order cancelled",
			fmt.Sprintf("Your order %s placed at %s has been cancelled by the store. Check the app for more details.",
				order.ID, store.Name))
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PayOrder creates a gateway order for an unpaid order of the caller and
// stages the reconciliation snapshot. The returned gateway order feeds the
// client's checkout.
func (h *Handler) PayOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	claims, ok := claimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var req struct {
		OrderId string `json:"orderId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderId == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	order, ok := h.loadOrder(c, req.OrderId)
	if !ok {
		return
	}
	if order.UserID != claims.Subject {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	if order.Paid {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Order is already paid"})
		return
	}

	product, err := h.cat.GetProduct(c.Request.Context(), order.ProductID)
	if err != nil {
		slog.Error("failed to load product", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ProductID, order.ProductID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	owner, store, err := h.storeOwner(c, order.StoreID)
	if err != nil {
		slog.Error("failed to resolve store owner", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.StoreID, order.StoreID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	buyer, err := h.u.GetUserByID(c.Request.Context(), order.UserID)
	if err != nil {
		slog.Error("failed to load buyer", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, order.UserID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	rec := payments.PendingPaymentRecord{
		Order:   order,
		Product: product,
		Store:   catalog.Store{ID: store.ID, Name: store.Name},
		Buyer:   payments.Party{ID: buyer.ID, Name: buyer.Name, Email: buyer.Email},
		Owner:   payments.Party{ID: owner.ID, Name: owner.Name, Email: owner.Email},
	}

	gwOrder, err := h.reconciler.StagePayment(c.Request.Context(), rec)
	if err != nil {
		slog.Error("failed to stage payment", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"razorpayOrder": gwOrder})
}

// loadOrder fetches an order and writes the error response on failure.
func (h *Handler) loadOrder(c *gin.Context, orderID string) (orders.Order, bool) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	order, err := h.o.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order does not exist"})
			return orders.Order{}, false
		}
		slog.Error("failed to load order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return orders.Order{}, false
	}
	return order, true
}

// storeOwner resolves a store and its owning user.
func (h *Handler) storeOwner(c *gin.Context, storeID string) (owner userInfo, store storeInfo, err error) {
	s, err := h.cat.GetStore(c.Request.Context(), storeID)
	if err != nil {
		return userInfo{}, storeInfo{}, err
	}
	u, err := h.u.GetUserByID(c.Request.Context(), s.OwnerID)
	if err != nil {
		return userInfo{}, storeInfo{}, err
	}
	return userInfo{ID: u.ID, Name: u.Name, Email: u.Email}, storeInfo{ID: s.ID, Name: s.Name}, nil
}

type userInfo struct {
	ID    string
	Name  string
	Email string
}

type storeInfo struct {
	ID   string
	Name string
}

// notifyMail sends one best-effort mail; failures are logged, never
// surfaced to the client.
func (h *Handler) notifyMail(traceId, to, subject, body string) {
	if err := h.mailer.Send(to, subject, body); err != nil {
		slog.Error("notification mail failed", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()))
	}
}
