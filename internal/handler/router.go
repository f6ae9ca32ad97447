package handler

import (
	"github.com/SergeiKhy/shortlink/internal/middleware"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(
	linkService service.LinkService,
	resolver *service.Resolver,
	rateLimiter *middleware.RateLimiter,
	auth *middleware.Auth,
	health *HealthHandler,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	// Служебные маршруты без лимитов и аутентификации
	if health != nil {
		router.GET("/healthz", health.Health)
	}
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	linkHandler := NewLinkHandler(linkService, resolver, logger)

	// API: пользователь из токена, rate limiting по пользователю, для анонимов по IP
	api := router.Group("")
	if auth != nil {
		api.Use(auth.Middleware())
	}
	if rateLimiter != nil {
		api.Use(rateLimiter.MiddlewareWithKey(func(c *gin.Context) string {
			userID, _ := middleware.UserIDFromContext(c)
			return userID
		}))
	}

	api.POST("/link", linkHandler.CreateLink)
	api.GET("/links", linkHandler.ListLinks)
	api.GET("/link/:key", linkHandler.GetLink)
	api.PUT("/link/:key/archive", linkHandler.ArchiveLink)
	api.GET("/link/:key/clicks", linkHandler.GetClicks)

	// Редирект открыт для анонимов и ботов, токен не проверяется.
	// Ключи со слэшами попадают в NoRoute.
	redirect := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if rateLimiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{rateLimiter.Middleware(), h}
	}
	router.GET("/:key", redirect(linkHandler.Redirect)...)
	router.NoRoute(redirect(linkHandler.RedirectPath)...)

	return router
}
