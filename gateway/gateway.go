package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/catalog"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/orders"
	"github.com/example/storefront/pkg/repository"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// OrderService is the order ledger as seen by the HTTP layer.
type OrderService interface {
	Create(ctx context.Context, userID string, in orders.CreateInput) (*models.Order, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.OrderWithUser, error)
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context) (*models.Summary, error)
	ConfirmPayment(ctx context.Context, id string, confirmation models.PaymentResult) (*models.Order, error)
	MarkDelivered(ctx context.Context, id string) (*models.Order, error)
}

type CatalogService interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, q repository.ProductQuery) ([]models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	AdminPage(ctx context.Context, page int) (*catalog.ProductPage, error)
	Sample() *models.Product
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	Update(ctx context.Context, id string, p *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id string) error
	AddReview(ctx context.Context, id, reviewer string, in catalog.ReviewInput) (*models.Product, error)
	Quote(ctx context.Context, lines []catalog.QuoteLine) (*catalog.Quote, error)
}

type Gateway struct {
	config  *config.Config
	orders  OrderService
	catalog CatalogService
	guard   *auth.Guard
	logger  *zap.Logger
	router  *gin.Engine
	server  *http.Server
}

func NewGateway(cfg *config.Config, orderSvc OrderService, catalogSvc CatalogService, guard *auth.Guard, logger *zap.Logger) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	g := &Gateway{
		config:  cfg,
		orders:  orderSvc,
		catalog: catalogSvc,
		guard:   guard,
		logger:  logger,
		router:  router,
	}
	g.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	user := g.guard.RequireUser()
	admin := g.guard.RequireAdmin()

	api := g.router.Group("/api")
	{
		api.GET("/keys/paypal", g.paypalClientID)
		api.POST("/cart/quote", g.quote)

		products := api.Group("/products")
		{
			products.GET("", g.listProducts)
			products.GET("/categories", g.listCategories)
			products.GET("/slug/:slug", g.getProductBySlug)
			products.GET("/admin", user, admin, g.adminProducts)
			products.GET("/:id", g.getProduct)
			products.POST("", user, admin, g.createProduct)
			products.PUT("/:id", user, admin, g.updateProduct)
			products.DELETE("/:id", user, admin, g.deleteProduct)
			products.POST("/:id/reviews", user, g.createReview)
		}

		orders := api.Group("/orders", user)
		{
			orders.POST("", g.createOrder)
			orders.GET("/mine", g.listMyOrders)
			orders.GET("/summary", admin, g.summary)
			orders.GET("/:id", g.getOrder)
			orders.PUT("/:id/pay", g.payOrder)
			orders.PUT("/:id/deliver", admin, g.deliverOrder)
			orders.GET("", admin, g.listOrders)
			orders.DELETE("/:id", admin, g.deleteOrder)
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Start blocks until the server stops. A Shutdown is not reported as an error.
func (g *Gateway) Start() error {
	g.logger.Info("Gateway starting", zap.String("address", g.server.Addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

func (g *Gateway) paypalClientID(c *gin.Context) {
	id := g.config.PayPal.ClientID
	if id == "" {
		id = "sb"
	}
	c.String(http.StatusOK, id)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
