package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bookstore-service/internal/models"
	"bookstore-service/internal/service"
	"bookstore-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Caller identity headers set by the upstream gateway. Authentication itself
// is the gateway's job; this service only enforces ownership.
const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-Role"
)

// Handler contains HTTP handlers
type Handler struct {
	orders    *service.OrderService
	lifecycle *service.LifecycleService
	inventory *service.InventoryService
	catalog   *service.CatalogService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	lifecycle *service.LifecycleService,
	inventory *service.InventoryService,
	catalog *service.CatalogService,
) *Handler {
	return &Handler{
		orders:    orders,
		lifecycle: lifecycle,
		inventory: inventory,
		catalog:   catalog,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(callerIdentity())
	{
		v1.POST("/books", h.createBook)
		v1.GET("/books/:id", h.getBook)
		v1.GET("/sellers/:id/books", h.listSellerBooks)

		v1.GET("/sellers/:id/inventory", h.getSellerInventory)
		v1.PUT("/sellers/:id/inventory/:bookId", h.setStock)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart", h.addToCart)
		v1.DELETE("/cart/:bookId", h.removeFromCart)

		v1.POST("/orders", h.checkout)
		v1.POST("/orders/checkout", h.checkoutFromCart)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", h.transitionStatus)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// checkout handles order creation from an explicit item list
func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	req.BuyerID = callerID(c)
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, items, err := h.orders.Checkout(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order, "items": items})
}

// checkoutFromCart places an order from the buyer's persisted cart
func (h *Handler) checkoutFromCart(c *gin.Context) {
	order, items, err := h.orders.CheckoutFromCart(
		c.Request.Context(), callerID(c), c.GetHeader("Idempotency-Key"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order, "items": items})
}

// getOrder handles get order by ID. Orders are visible only to the buyer
// who placed them and the seller fulfilling them.
func (h *Handler) getOrder(c *gin.Context) {
	order, items, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	caller := callerID(c)
	if order.BuyerID != caller && order.SellerID != caller {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

// listOrders returns the caller's orders: purchases for buyers, sales for
// sellers.
func (h *Handler) listOrders(c *gin.Context) {
	var orders []models.Order
	var err error

	switch callerRole(c) {
	case models.RoleSeller:
		orders, err = h.orders.ListSellerOrders(c.Request.Context(), callerID(c))
	default:
		orders, err = h.orders.ListBuyerOrders(c.Request.Context(), callerID(c))
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// transitionStatus advances an order through the lifecycle state machine
func (h *Handler) transitionStatus(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.lifecycle.Transition(
		c.Request.Context(), c.Param("id"), callerID(c), callerRole(c), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// cancelOrder cancels a pending order
func (h *Handler) cancelOrder(c *gin.Context) {
	order, err := h.lifecycle.Cancel(
		c.Request.Context(), c.Param("id"), callerID(c), callerRole(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

type addToCartRequest struct {
	BookID   string `json:"book_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

func (h *Handler) getCart(c *gin.Context) {
	items, err := h.orders.GetCart(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.orders.AddToCart(c.Request.Context(), callerID(c), req.BookID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Added to cart"})
}

func (h *Handler) removeFromCart(c *gin.Context) {
	if err := h.orders.RemoveFromCart(c.Request.Context(), callerID(c), c.Param("bookId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Removed from cart"})
}

func (h *Handler) createBook(c *gin.Context) {
	var req service.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	req.SellerID = callerID(c)
	book, err := h.catalog.CreateListing(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"book": book})
}

func (h *Handler) getBook(c *gin.Context) {
	book, err := h.catalog.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": book})
}

func (h *Handler) listSellerBooks(c *gin.Context) {
	books, err := h.catalog.ListSellerBooks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

func (h *Handler) getSellerInventory(c *gin.Context) {
	entries, err := h.inventory.GetSellerInventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": entries})
}

type setStockRequest struct {
	Count *int `json:"count" binding:"required"`
}

// setStock lets a seller set the stock count for one of their books
func (h *Handler) setStock(c *gin.Context) {
	sellerID := c.Param("id")
	if sellerID != callerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	entry, err := h.inventory.SetStock(c.Request.Context(), sellerID, c.Param("bookId"), *req.Count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// respondError maps the error taxonomy onto HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidOrder), errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// callerIdentity requires the gateway identity headers on every request
func callerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderUserID)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing required header: " + HeaderUserID,
			})
			return
		}

		role := c.GetHeader(HeaderRole)
		if role == "" {
			role = models.RoleBuyer
		}

		c.Set("caller_id", id)
		c.Set("caller_role", role)
		c.Next()
	}
}

func callerID(c *gin.Context) string {
	return c.GetString("caller_id")
}

func callerRole(c *gin.Context) string {
	return c.GetString("caller_role")
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
