package api

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Users    *UserHandler
	Trains   *TrainHandler
	Bookings *BookingHandler
}

type RouterConfig struct {
	Auth       Authenticator
	Admin      AdminAuthorizer
	SwaggerDir string
}

// NewRouter builds the HTTP surface: the JSON API under /api, a liveness
// probe and, when a swagger directory is configured, the API docs.
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.SwaggerDir != "" {
		specPath := filepath.Join(cfg.SwaggerDir, "swagger.json")
		router.GET("/docs/swagger.json", func(c *gin.Context) {
			c.File(specPath)
		})
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/docs/swagger.json"))))
	}

	apiGroup := router.Group("/api")
	h.Users.Register(apiGroup)
	h.Trains.Register(apiGroup.Group("/trains"))
	h.Trains.RegisterAdmin(apiGroup.Group("/admin/trains", RequireAdmin(cfg.Admin)))
	h.Bookings.Register(apiGroup.Group("/bookings", RequireUser(cfg.Auth)))

	return router
}
