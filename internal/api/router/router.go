package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/image-hosting/internal/api/handlers/image"
	"github.com/aliskhannn/image-hosting/internal/auth"
	"github.com/aliskhannn/image-hosting/internal/metrics"
	"github.com/aliskhannn/image-hosting/internal/middleware"
)

func Setup(h *image.Handler, a auth.Authorizer) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	metrics.Register(r, "/metrics")

	api := r.Group("/api")

	// Serving is public; image addressing is by opaque id only.
	api.GET("/image/:id", h.Get)          // original or resized variant
	api.GET("/image/:id/meta", h.GetMeta) // metadata only

	// Management operations require an authorized caller.
	protected := api.Group("", middleware.Auth(a))

	protected.POST("/upload", h.Upload)      // uploading image
	protected.GET("/images", h.List)         // listing images
	protected.DELETE("/image/:id", h.Delete) // deleting image by id

	return r
}
