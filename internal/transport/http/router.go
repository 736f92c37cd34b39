package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orderflow/order-service/internal/config"
	"github.com/orderflow/order-service/internal/service"
)

func NewRouter(svc *service.OrderService, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	r.Use(cors.Default())
	RegisterHandlers(r, svc)
	return r
}
