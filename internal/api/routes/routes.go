package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/ameena/internal/api/handlers"
)

type TaxDeps struct {
	Tax     *handlers.TaxHandler
	Metrics http.Handler
}

func RegisterTaxRoutes(r *gin.Engine, d TaxDeps) {
	r.GET("/health", d.Tax.Health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	api := r.Group("/api")
	api.POST("/tax/search", d.Tax.Search)
}

type BotDeps struct {
	WS        *handlers.WSHandler
	Translate *handlers.TranslateHandler
	Metrics   http.Handler
}

func RegisterBotRoutes(r *gin.Engine, d BotDeps) {
	r.GET("/health", d.WS.Health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	api := r.Group("/api")
	api.POST("/translate", d.Translate.Translate)

	// WebSocket
	r.GET("/ws/translate", d.WS.Translate)
}
