package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"smart-factory-backend/internal/model"
	"smart-factory-backend/internal/mw"
	"smart-factory-backend/internal/notification"
	"smart-factory-backend/internal/store"
)

// Options configures the router and its middleware.
type Options struct {
	JWTSecret       []byte
	TokenTTL        time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
	RequestIPHeader string
	WebPush         *webpush.Options
	Notifier        *notification.WorkerPool
}

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, opts Options) *gin.Engine {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.RateLimitPerSec <= 0 {
		opts.RateLimitPerSec = 10
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 5
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}

	r := gin.Default()
	h := NewHandler(s, opts)

	r.Use(mw.RateLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateLimitBurst, opts.RequestIPHeader))

	// Short-TTL cache for the read-heavy aggregation endpoints.
	cacheStore := cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	caching := mw.Cache(cacheStore, opts.CacheTTL)

	authn := mw.Authenticate(s, opts.JWTSecret)
	anyRole := mw.RequireRole(model.RoleOperator, model.RoleChef, model.RoleAdmin)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	r.GET("/auth/me", authn, h.Me)

	// Machines
	r.GET("/machines", h.ListMachines)
	r.GET("/machines/:id", h.GetMachine)
	r.POST("/machines", authn, anyRole, h.CreateMachine)
	r.PATCH("/machines/:id", authn, anyRole, h.UpdateMachine)
	r.DELETE("/machines/:id", authn, anyRole, h.DeleteMachine)

	// Work orders
	r.GET("/work_orders", h.ListWorkOrders)
	r.POST("/work_orders", authn, mw.RequireRole(model.RoleChef, model.RoleAdmin), h.CreateWorkOrder)

	// KPIs & activity
	r.GET("/machines/:id/kpis", caching, h.MachineKPIs)
	r.GET("/kpis/global", caching, h.GlobalKPIs)
	r.GET("/activities/recent", caching, h.RecentActivities)
	r.GET("/machines/:id/activity", caching, h.MachineActivity)
	r.GET("/dashboard/summary", caching, h.DashboardSummary)

	// Production events
	r.POST("/events", authn, h.CreateEvent)
	r.GET("/events", h.ListEvents)
	r.GET("/events/:id", h.GetEvent)

	// Stop alert subscriptions
	r.GET("/subscriptions", h.GetSubscription)
	r.PUT("/subscriptions", h.PutSubscription)
	r.DELETE("/subscriptions", h.DeleteSubscription)
	r.GET("/vapid_public_key", h.GetVAPIDPublicKey)

	// Introspection: every registered method/path pair.
	r.GET("/routes", func(c *gin.Context) {
		out := make([]gin.H, 0)
		for _, route := range r.Routes() {
			out = append(out, gin.H{"method": route.Method, "path": route.Path})
		}
		c.JSON(http.StatusOK, out)
	})

	return r
}
