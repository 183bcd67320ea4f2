package handlers

import "github.com/gin-gonic/gin"

const MaxMultipartMemory = 8 << 20 // 8 MiB

// NewRouter registers the public routes behind the given middleware.
func NewRouter(apply *ApplyHandler, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.Default()
	// Set a lower memory limit for multipart forms (default is 32 MiB)
	router.MaxMultipartMemory = MaxMultipartMemory
	router.GET("/healthz", Healthz)

	api := router.Group("/", middleware...)
	api.POST("/apply", apply.Apply)
	return router
}
