package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/config"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/database"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/handlers"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/services"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}
func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
}

func Setup(log *zap.Logger, registry *quiz.Registry, scanner *services.ScannerService) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	store := cookie.NewStore([]byte(config.Conf.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 30,
	})
	router.Use(sessions.Sessions("skinmatch", store))
	router.Use(ClientIdentity(log))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
	})

	// Handlers
	quizHandler := handlers.NewQuizHandler(log, registry)
	contentHandler := handlers.NewContentHandler(log, registry)
	accountHandler := handlers.NewAccountHandler(log)
	wishlistHandler := handlers.NewWishlistHandler(log)
	scannerHandler := handlers.NewScannerHandler(log, scanner, registry)

	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 5,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := database.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		quizRoutes := api.Group("/quiz")
		{
			quizRoutes.GET("/questions", quizHandler.Questions)
			quizRoutes.GET("/state", quizHandler.State)
			quizRoutes.POST("/session", quizHandler.EnsureSession)
			quizRoutes.PUT("/answers/:key", quizHandler.SetAnswer)
			quizRoutes.DELETE("/answers/:key", quizHandler.ClearAnswer)
			quizRoutes.POST("/reset", quizHandler.Reset)
			quizRoutes.POST("/finalize", quizHandler.Finalize)
		}

		api.GET("/articles", contentHandler.ListArticles)
		api.GET("/articles/recommended", contentHandler.RecommendedArticles)
		api.GET("/articles/:slug", contentHandler.GetArticle)
		api.GET("/products", contentHandler.ListProducts)
		api.GET("/products/:id", contentHandler.GetProduct)

		api.POST("/scanner/analyze", limiter, scannerHandler.Analyze)

		api.POST("/accounts", limiter, accountHandler.Create)
		api.POST("/account/token", limiter, accountHandler.RotateToken)

		authorized := api.Group("/")
		authorized.Use(AccountRequired(log))
		{
			authorized.GET("/account/profile", accountHandler.Profile)
			authorized.PUT("/account/profile", accountHandler.UpdateProfile)
			authorized.DELETE("/account", accountHandler.Delete)

			wishlistRoutes := authorized.Group("/wishlist")
			{
				wishlistRoutes.GET("", wishlistHandler.List)
				wishlistRoutes.POST("", wishlistHandler.Add)
				wishlistRoutes.DELETE("/:productId", wishlistHandler.Remove)
			}
		}
	}

	return router
}
