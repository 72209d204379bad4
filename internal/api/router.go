package api

import (
	"dob-oracle/internal/api/handler"
	"dob-oracle/internal/view"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	CORSOrigins   []string
	SessionMaxAge int
	Gatherer      prometheus.Gatherer
}

// NewRouter wires the page, the JSON API and the operational endpoints.
func NewRouter(oracle *handler.OracleHandler, health *handler.HealthHandler, cfg RouterConfig) (*gin.Engine, error) {
	tmpl, err := view.HTMLTemplates()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors.New(corsConfig(cfg.CORSOrigins)))
	router.SetHTMLTemplate(tmpl)

	sessions := handler.SessionMiddleware(cfg.SessionMaxAge)

	router.GET("/", sessions, oracle.Index)
	router.POST("/analyze", sessions, oracle.SubmitForm)

	api := router.Group("/api")
	{
		api.GET("/health", health.Check)
		api.POST("/analyze", sessions, oracle.SubmitJSON)
		api.GET("/session", sessions, oracle.Session)
		api.GET("/session/events", sessions, oracle.Events)
		api.GET("/session/history", sessions, oracle.History)
	}

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	return corsConfig
}
