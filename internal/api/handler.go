package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"sales-service/internal/outcome"
	"sales-service/internal/redisclient"
	"sales-service/internal/service"
	"sales-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService   *service.OrderService
	cartService    *service.CartService
	catalogService *service.CatalogService
	accountService *service.AccountService
	cache          *redisclient.Client
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orderService *service.OrderService,
	cartService *service.CartService,
	catalogService *service.CatalogService,
	accountService *service.AccountService,
	cache *redisclient.Client,
) *Handler {
	return &Handler{
		orderService:   orderService,
		cartService:    cartService,
		catalogService: catalogService,
		accountService: accountService,
		cache:          cache,
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
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.DELETE("/orders/:id", h.deleteOrder)
		v1.POST("/orders/:id/products", h.addOrderProduct)
		v1.DELETE("/orders/:id/products/:productId", h.removeOrderProduct)
		v1.POST("/orders/:id/send", h.sendOrder)
		v1.POST("/orders/:id/finish", h.finishOrder)

		v1.GET("/reports/orders", h.getOrderReport)
		v1.GET("/reports/daily", h.getDailyReport)

		v1.POST("/products", h.createProduct)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.PUT("/products/:id", h.updateProduct)
		v1.DELETE("/products/:id", h.deleteProduct)
		v1.POST("/products/:id/stock", h.addStock)
		v1.POST("/categories", h.createCategory)
		v1.GET("/categories", h.listCategories)

		v1.POST("/users", h.createUser)
		v1.GET("/users/:id", h.getUser)
		v1.GET("/users/:id/orders", h.getUserOrders)
		v1.POST("/affiliates", h.createAffiliate)
		v1.GET("/affiliates", h.listAffiliates)
		v1.GET("/affiliates/:id", h.getAffiliate)
		v1.POST("/users/:id/shifts", h.openShift)
		v1.POST("/users/:id/shifts/close", h.closeShift)
		v1.GET("/users/:id/shifts", h.listShifts)

		v1.GET("/users/:id/cart", h.getCart)
		v1.DELETE("/users/:id/cart", h.clearCart)
		v1.POST("/users/:id/cart/products", h.addCartProduct)
		v1.PUT("/users/:id/cart/products/:productId", h.updateCartProductAmount)
		v1.DELETE("/users/:id/cart/products/:productId", h.removeCartProduct)
		v1.POST("/users/:id/cart/products/:productId/check", h.checkCartProduct)
		v1.POST("/users/:id/cart/products/:productId/uncheck", h.uncheckCartProduct)
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

// statusForKind maps a business outcome kind to an HTTP status.
func statusForKind(kind outcome.Kind) int {
	switch kind {
	case outcome.NotFound, outcome.ProductNotFound, outcome.ProductsNotFound:
		return http.StatusNotFound
	case outcome.DataIsNull, outcome.IdMismatch, outcome.IncorrectFormatData:
		return http.StatusBadRequest
	case outcome.DuplicateData,
		outcome.StockUnavailable,
		outcome.OrderFinishedOrSent,
		outcome.OrderNotSent,
		outcome.NoRowsAffected,
		outcome.ConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes an error response. Business outcomes carry their kind
// and field details; anything else is an opaque 500.
func respondError(c *gin.Context, err error) {
	if kind := outcome.KindOf(err); kind != "" {
		body := gin.H{
			"error": err.Error(),
			"kind":  string(kind),
		}
		var oe *outcome.Error
		if errors.As(err, &oe) && len(oe.Fields) > 0 {
			body["fields"] = oe.Fields
		}
		c.JSON(statusForKind(kind), body)
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "internal error",
	})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid " + name,
		})
		return 0, false
	}
	return id, true
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, items, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

func (h *Handler) deleteOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(c.Request.Context(), orderID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type orderProductRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Amount    int   `json:"amount" binding:"required"`
}

func (h *Handler) addOrderProduct(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req orderProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.AddProduct(c.Request.Context(), orderID, req.ProductID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) removeOrderProduct(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	order, err := h.orderService.RemoveProduct(c.Request.Context(), orderID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) sendOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.SendOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) finishOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.FinishOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) getUserOrders(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	orders, err := h.orderService.GetOrdersByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrderReport aggregates orders in [start, end] straight from SQL.
func (h *Handler) getOrderReport(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start, expected RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end, expected RFC3339"})
		return
	}

	report, err := h.orderService.GetOrderReport(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// getDailyReport serves the redis counters maintained by the report worker.
func (h *Handler) getDailyReport(c *gin.Context) {
	day := time.Now()
	if v := c.Query("day"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid day, expected YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	ordersCount, totalValue, err := h.cache.GetDailyReport(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"day":          day.Format("2006-01-02"),
		"orders_count": ordersCount,
		"total_value":  totalValue,
	})
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) listProducts(c *gin.Context) {
	var categoryID int64
	if v := c.Query("category_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
			return
		}
		categoryID = parsed
	}

	products, err := h.catalogService.ListProducts(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type addStockRequest struct {
	Amount int `json:"amount" binding:"required"`
}

func (h *Handler) addStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req addStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalogService.AddStock(c.Request.Context(), id, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type userRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	user, err := h.accountService.CreateUser(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.accountService.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

type affiliateRequest struct {
	Name              string `json:"name" binding:"required"`
	CommissionPercent int    `json:"commission_percent"`
}

func (h *Handler) createAffiliate(c *gin.Context) {
	var req affiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	affiliate, err := h.accountService.CreateAffiliate(c.Request.Context(), req.Name, req.CommissionPercent)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, affiliate)
}

func (h *Handler) getAffiliate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	affiliate, err := h.accountService.GetAffiliate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, affiliate)
}

func (h *Handler) listAffiliates(c *gin.Context) {
	affiliates, err := h.accountService.ListAffiliates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"affiliates": affiliates})
}

func (h *Handler) openShift(c *gin.Context) {
	employeeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	shift, err := h.accountService.OpenShift(c.Request.Context(), employeeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, shift)
}

func (h *Handler) closeShift(c *gin.Context) {
	employeeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	shift, err := h.accountService.CloseShift(c.Request.Context(), employeeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, shift)
}

func (h *Handler) listShifts(c *gin.Context) {
	employeeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	shifts, err := h.accountService.ListShifts(c.Request.Context(), employeeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shifts": shifts})
}

func (h *Handler) getCart(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	cart, lines, err := h.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart":     cart,
		"products": lines,
	})
}

type cartProductRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Amount    int   `json:"amount" binding:"required"`
}

func (h *Handler) addCartProduct(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req cartProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	cart, err := h.cartService.AddProductToCart(c.Request.Context(), userID, req.ProductID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

type cartAmountRequest struct {
	Amount int `json:"amount" binding:"required"`
}

func (h *Handler) updateCartProductAmount(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	var req cartAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	cart, err := h.cartService.UpdateProductAmount(c.Request.Context(), userID, productID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

func (h *Handler) removeCartProduct(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveProductFromCart(c.Request.Context(), userID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

func (h *Handler) checkCartProduct(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	cart, err := h.cartService.CheckProduct(c.Request.Context(), userID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

func (h *Handler) uncheckCartProduct(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	cart, err := h.cartService.UncheckProduct(c.Request.Context(), userID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

func (h *Handler) clearCart(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	cart, err := h.cartService.ClearCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
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
