// Package router assembles the HTTP surface of the grievance API.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/handler"
	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/service"
	"github.com/noah-isme/grievance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/grievance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/grievance-api/pkg/middleware/requestid"
)

// Options carries everything the router needs to mount its routes.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool

	Logger    *zap.Logger
	Metrics   *service.MetricsService
	Validator middleware.TokenValidator

	Grievances *handler.GrievanceHandler
	Taxonomy   *handler.TaxonomyHandler
	Probes     *handler.MetricsHandler
}

// New builds the gin engine. Probes and metrics are public; everything under
// the API prefix requires a bearer token.
func New(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(logger.GinMiddleware(log))
	r.Use(middleware.Metrics(opts.Metrics))

	r.GET("/health", opts.Probes.Health)
	r.GET("/ready", opts.Probes.Ready)
	r.GET("/metrics", opts.Probes.Prometheus)

	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	api.Use(middleware.JWT(opts.Validator))

	taxonomy := api.Group("/taxonomy")
	taxonomy.GET("", opts.Taxonomy.List)
	taxonomy.GET("/:category/*subCategory", opts.Taxonomy.Schema)

	grievances := api.Group("/grievances")
	grievances.POST("", opts.Grievances.Submit)
	grievances.GET("", opts.Grievances.List)
	grievances.GET("/stats", middleware.RequireReviewer(), opts.Grievances.Stats)
	grievances.GET("/export", middleware.RequireReviewer(), opts.Grievances.Export)
	grievances.GET("/:id", opts.Grievances.Get)
	grievances.GET("/:id/history", opts.Grievances.History)
	grievances.GET("/:id/transitions", opts.Grievances.Transitions)
	grievances.POST("/:id/transition", middleware.RequireReviewer(), opts.Grievances.Transition)

	return r
}
