package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/plasmx/referral-ledger/handler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Voucher  *handler.VoucherHandler
	Swap     *handler.SwapHandler
	Referral *handler.ReferralHandler
}

type Options struct {
	AllowedOrigins []string
	VoucherLimiter *RateLimiter
	// HealthCheck pings the ledger database; nil reports healthy.
	HealthCheck func(ctx context.Context) error
}

func SetupRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(accessLog())
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	r.GET("/health", func(c *gin.Context) {
		if opts.HealthCheck != nil {
			if err := opts.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "referral-ledger"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		sign := []gin.HandlerFunc{h.Voucher.SignVoucher}
		if opts.VoucherLimiter != nil {
			sign = append([]gin.HandlerFunc{opts.VoucherLimiter.Middleware()}, sign...)
		}
		api.POST("/sign-voucher", sign...)
		api.GET("/vault-info", h.Voucher.VaultInfo)

		api.POST("/track-swap", h.Swap.TrackSwap)

		api.POST("/bind-by-code", h.Referral.BindByCode)
		api.POST("/create-referral-code", h.Referral.CreateCode)
		api.GET("/referral-stats/:address", h.Referral.Stats)
		api.GET("/referral-code/:code", h.Referral.ResolveCode)

		referrals := api.Group("/referrals")
		{
			referrals.POST("/bind-code", h.Referral.BindByCode)
			referrals.POST("/bind", h.Referral.BindByAddress)
			referrals.GET("/binding/:address", h.Referral.Binding)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
