package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/NotJalaAl00/Flint/internal/auth"
	"github.com/NotJalaAl00/Flint/internal/catalog"
	"github.com/NotJalaAl00/Flint/internal/orders"
	"github.com/NotJalaAl00/Flint/internal/otp"
	"github.com/NotJalaAl00/Flint/internal/payments"
	"github.com/NotJalaAl00/Flint/internal/users"
	"github.com/NotJalaAl00/Flint/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// UserStore is the slice of the user domain the handlers call.
type UserStore interface {
	InsertUser(ctx context.Context, nu users.NewUser) (users.User, error)
	Authenticate(ctx context.Context, email, password string) (users.User, error)
	GetUserByEmail(ctx context.Context, email string) (users.User, error)
	GetUserByID(ctx context.Context, id string) (users.User, error)
	UpdatePassword(ctx context.Context, userID, password string) error
	UpdateProfile(ctx context.Context, userID string, nu users.NewUser) (users.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

type CatalogStore interface {
	CreateStore(ctx context.Context, ownerID string, ns catalog.NewStore) (catalog.Store, error)
	GetStore(ctx context.Context, storeID string) (catalog.Store, error)
	ListStoresForOwner(ctx context.Context, ownerID string) ([]catalog.Store, error)
	UpdateStore(ctx context.Context, storeID string, ns catalog.NewStore) (catalog.Store, error)
	DeleteStore(ctx context.Context, storeID string) error
	CreateProduct(ctx context.Context, storeID string, np catalog.NewProduct) (catalog.Product, error)
	GetProduct(ctx context.Context, productID string) (catalog.Product, error)
	ListProductsForStore(ctx context.Context, storeID string) ([]catalog.Product, error)
	UpdateProduct(ctx context.Context, productID string, np catalog.NewProduct) (catalog.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

type OrderStore interface {
	PlaceOrder(ctx context.Context, userID, productID string, quantity int) (orders.Order, error)
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
	ListForUser(ctx context.Context, userID string) ([]orders.Order, error)
	ListForStoreOwner(ctx context.Context, ownerID string) ([]orders.Order, error)
	ListForProductOwner(ctx context.Context, ownerID string) ([]orders.Order, error)
	SetDelivered(ctx context.Context, orderID string, delivered bool) (orders.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

type Mailer interface {
	Send(to, subject, body string) error
}

type Handler struct {
	u          UserStore
	cat        CatalogStore
	o          OrderStore
	otp        *otp.Service
	mailer     Mailer
	reconciler *payments.Reconciler
	keys       *auth.Keys
	validate   *validator.Validate
}

func NewHandler(u UserStore, cat CatalogStore, o OrderStore, otpSvc *otp.Service,
	mailer Mailer, reconciler *payments.Reconciler, keys *auth.Keys) *Handler {
	return &Handler{
		u:          u,
		cat:        cat,
		o:          o,
		otp:        otpSvc,
		mailer:     mailer,
		reconciler: reconciler,
		keys:       keys,
		validate:   validator.New(),
	}
}

// API builds the gin engine with all routes and middleware. Background
// goroutines it starts, like the rate limiter cleanup, stop when ctx is
// cancelled.
func API(ctx context.Context, h *Handler, keys *auth.Keys) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(keys)
	if err != nil {
		panic(err)
	}

	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", HealthCheck)

	limiter := middleware.NewRateLimiter(15, time.Minute)
	limiter.StartCleanup(ctx, 10*time.Minute)

	login := r.Group("/login")
	login.Use(limiter.Middleware())
	{
		login.POST("/signup", h.SignupOTP)
		login.POST("/signup/validate", h.SignupValidate)
		login.POST("/signin", h.Signin)
		login.POST("/update-password/get-otp", h.PasswordResetOTP)
		login.POST("/update-password/verify", h.PasswordResetVerify)
		login.POST("/update-password", m.ResetAuthentication(), h.UpdatePassword)
	}

	api := r.Group("/api")
	{
		api.GET("/store/:id/products", h.ListProducts)

		authed := api.Group("")
		authed.Use(m.Authentication())
		{
			authed.GET("/user/stores", h.ListStores)
			authed.POST("/user/store", h.CreateStore)
			authed.PUT("/user/update", h.UpdateProfile)
			authed.DELETE("/user/delete", h.DeleteUser)

			authed.PUT("/store/:id", h.UpdateStore)
			authed.DELETE("/store/:id", h.DeleteStore)
			authed.POST("/store/:id/product", h.CreateProduct)

			authed.PUT("/product/:id", h.UpdateProduct)
			authed.DELETE("/product/:id", h.DeleteProduct)
		}
	}

	ordersGroup := r.Group("/orders")
	ordersGroup.Use(m.Authentication())
	{
		ordersGroup.GET("/user", h.OrdersForUser)
		ordersGroup.GET("/store", h.OrdersForStore)
		ordersGroup.GET("/product", h.OrdersForProduct)
		ordersGroup.GET("/:id", h.OrderByID)
		ordersGroup.POST("", h.PlaceOrder)
		ordersGroup.PUT("/:id", h.UpdateOrderStatus)
		ordersGroup.DELETE("/:id", h.DeleteOrder)
		ordersGroup.POST("/pay", h.PayOrder)
	}

	r.POST("/razorpay-webhook", h.RazorpayWebhook)

	return r
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// claimsFromContext pulls the authenticated claims stored by the middleware.
func claimsFromContext(c *gin.Context) (auth.Claims, bool) {
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	return claims, ok
}
