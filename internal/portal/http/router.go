package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/feeds"
	"github.com/agriconnect/farmerportal/internal/portal/service"
	"github.com/agriconnect/farmerportal/pkg/httpx"
	"github.com/agriconnect/farmerportal/pkg/slogx"

	_ "github.com/agriconnect/farmerportal/api/portal" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Limits holds the rate limit profile for each endpoint group.
type Limits struct {
	Strict       httpx.RateLimitConfig
	Registration httpx.RateLimitConfig
	Moderate     httpx.RateLimitConfig
	Lenient      httpx.RateLimitConfig
	Public       httpx.RateLimitConfig
}

// DefaultLimits returns the httpx profiles.
func DefaultLimits() Limits {
	return Limits{
		Strict:       httpx.StrictLimit,
		Registration: httpx.RegistrationLimit,
		Moderate:     httpx.ModerateLimit,
		Lenient:      httpx.LenientLimit,
		Public:       httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Limits      Limits
	CORSOrigins []string
	Ready       map[string]Pinger

	Guard         *service.Guard
	Accounts      *service.AccountService
	Credentials   *service.Credentials
	Admins        *service.AdminService
	MFA           *service.MFAService
	Subsidies     *service.SubsidyService
	Notifications *service.NotificationService
	Stats         *service.StatsService
	MarketPrices  *service.MarketPriceService
	Prices        feeds.MarketPriceProvider
	Weather       feeds.WeatherProvider
}

func NewRouter(buildVersion string, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Limits:       DefaultLimits(),
		Ready:        map[string]Pinger{},
	}
}

// ApplyRoutes registers every route. Set the services, Limits and
// CORSOrigins first.
func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.SecurityHeaders(),
		httpx.CORS(r.CORSOrigins),
	}

	r.registerRegistration()
	r.registerFarmers()
	r.registerAdmin()
	r.registerContent()
	r.registerMFA()
	r.registerSystem()

	r.Mux.Handle("GET /swagger/",
		httpx.Chain(httpSwagger.Handler(),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Krushi Mithra Farmer Portal API
//	@version		1.0.0
//	@description	Farmer registration, admin approval and farmer services.
//	@description
//	@description				Farmer tokens are valid for 7 days and admin tokens for 24 hours. Both are HS256 JWTs.
//
//	@contact.name				AgriConnect Team
//	@contact.url				https://github.com/agriconnect/farmerportal
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:5000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) farmerHandler() *FarmerHandler {
	return &FarmerHandler{
		Accounts:      r.Accounts,
		Credentials:   r.Credentials,
		Subsidies:     r.Subsidies,
		Notifications: r.Notifications,
		Prices:        r.Prices,
		Weather:       r.Weather,
	}
}

func (r *Router) registerRegistration() {
	h := r.farmerHandler()

	// Registration sends mail or creates accounts: limited per IP.
	r.Mux.Handle("POST /api/farmers/register/request-otp",
		httpx.Chain(http.HandlerFunc(h.HandleRequestOTP),
			httpx.RateLimitByIP(r.Limits.Registration),
		),
	)
	r.Mux.Handle("POST /api/farmers/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.Limits.Registration),
		),
	)

	// Code checks are brute-force targets: strict, keyed by IP and email.
	r.Mux.Handle("POST /api/farmers/register/verify-otp",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyOTP),
			httpx.RateLimitByIPAndJSONField(r.Limits.Strict, "email"),
		),
	)
}

func (r *Router) registerFarmers() {
	h := r.farmerHandler()

	r.Mux.Handle("POST /api/farmers/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.Limits.Strict, "email"),
		),
	)

	// The profile read only needs a valid token so pending farmers can see
	// their application state.
	r.Mux.Handle("GET /api/farmers/profile",
		httpx.Chain(http.HandlerFunc(h.HandleProfile),
			farmerAuth(r.Guard, false),
			httpx.RateLimitBySubject(r.Limits.Lenient),
		),
	)

	active := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			farmerAuth(r.Guard, true),
			httpx.RateLimitBySubject(limit),
		)
	}
	r.Mux.Handle("PUT /api/farmers/profile", active(h.HandleUpdateProfile, r.Limits.Moderate))
	r.Mux.Handle("PUT /api/farmers/password", active(h.HandleChangePassword, r.Limits.Strict))
	r.Mux.Handle("GET /api/farmers/market-prices", active(h.HandleMarketPrices, r.Limits.Lenient))
	r.Mux.Handle("GET /api/farmers/weather", active(h.HandleWeather, r.Limits.Lenient))
	r.Mux.Handle("GET /api/farmers/subsidies", active(h.HandleSubsidies, r.Limits.Lenient))
	r.Mux.Handle("GET /api/farmers/notifications", active(h.HandleNotifications, r.Limits.Lenient))
	r.Mux.Handle("POST /api/farmers/notifications/{id}/read", active(h.HandleMarkRead, r.Limits.Moderate))
}

// mainAdmin wraps fn with the MAIN_ADMIN guard and a per-admin limit.
func (r *Router) mainAdmin(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(fn,
		adminAuth(r.Guard, domain.RoleMainAdmin),
		httpx.RateLimitBySubject(limit),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{
		Admins:      r.Admins,
		Accounts:    r.Accounts,
		Credentials: r.Credentials,
		Stats:       r.Stats,
	}

	r.Mux.Handle("POST /api/admin/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.Limits.Strict, "email"),
		),
	)

	r.Mux.Handle("GET /api/admin/farmers", r.mainAdmin(h.HandleListFarmers, r.Limits.Lenient))
	r.Mux.Handle("GET /api/admin/farmers/{id}", r.mainAdmin(h.HandleGetFarmer, r.Limits.Lenient))
	r.Mux.Handle("PUT /api/admin/farmers/{id}/approve", r.mainAdmin(h.HandleApprove, r.Limits.Moderate))
	r.Mux.Handle("PUT /api/admin/farmers/{id}/reject", r.mainAdmin(h.HandleReject, r.Limits.Moderate))
	r.Mux.Handle("PUT /api/admin/farmers/{id}/suspend", r.mainAdmin(h.HandleSuspend, r.Limits.Moderate))
	r.Mux.Handle("PUT /api/admin/farmers/{id}/override", r.mainAdmin(h.HandleOverride, r.Limits.Moderate))
	r.Mux.Handle("GET /api/admin/stats", r.mainAdmin(h.HandleStats, r.Limits.Lenient))
}

func (r *Router) registerContent() {
	h := &ContentHandler{
		Subsidies:     r.Subsidies,
		Notifications: r.Notifications,
		MarketPrices:  r.MarketPrices,
		Prices:        r.Prices,
	}

	r.Mux.Handle("GET /api/admin/subsidies", r.mainAdmin(h.HandleListSubsidies, r.Limits.Lenient))
	r.Mux.Handle("POST /api/admin/subsidies", r.mainAdmin(h.HandleCreateSubsidy, r.Limits.Moderate))
	r.Mux.Handle("PUT /api/admin/subsidies/{id}", r.mainAdmin(h.HandleUpdateSubsidy, r.Limits.Moderate))
	r.Mux.Handle("PATCH /api/admin/subsidies/{id}/toggle", r.mainAdmin(h.HandleToggleSubsidy, r.Limits.Moderate))
	r.Mux.Handle("DELETE /api/admin/subsidies/{id}", r.mainAdmin(h.HandleDeleteSubsidy, r.Limits.Moderate))

	r.Mux.Handle("POST /api/admin/notifications", r.mainAdmin(h.HandleBroadcast, r.Limits.Moderate))
	r.Mux.Handle("GET /api/admin/notifications", r.mainAdmin(h.HandleListNotifications, r.Limits.Lenient))
	r.Mux.Handle("DELETE /api/admin/notifications/{id}", r.mainAdmin(h.HandleDeleteNotification, r.Limits.Moderate))

	r.Mux.Handle("GET /api/admin/market-prices", r.mainAdmin(h.HandleListMarketPrices, r.Limits.Lenient))
	r.Mux.Handle("POST /api/admin/market-prices", r.mainAdmin(h.HandleCreateMarketPrice, r.Limits.Moderate))
	r.Mux.Handle("GET /api/admin/market-prices/{id}", r.mainAdmin(h.HandleGetMarketPrice, r.Limits.Lenient))
	r.Mux.Handle("PUT /api/admin/market-prices/{id}", r.mainAdmin(h.HandleUpdateMarketPrice, r.Limits.Moderate))
	r.Mux.Handle("DELETE /api/admin/market-prices/{id}", r.mainAdmin(h.HandleDeleteMarketPrice, r.Limits.Moderate))
	r.Mux.Handle("GET /api/admin/market-stats", r.mainAdmin(h.HandleMarketStats, r.Limits.Lenient))
	r.Mux.Handle("POST /api/admin/market-prices/refresh", r.mainAdmin(h.HandleRefreshPrices, r.Limits.Moderate))
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFA: r.MFA}

	r.Mux.Handle("POST /api/admin/mfa/enroll", r.mainAdmin(h.HandleEnroll, r.Limits.Moderate))
	// Code checks: strict per admin to stop TOTP guessing.
	r.Mux.Handle("POST /api/admin/mfa/confirm", r.mainAdmin(h.HandleConfirm, r.Limits.Strict))
	r.Mux.Handle("POST /api/admin/mfa/disable", r.mainAdmin(h.HandleDisable, r.Limits.Strict))
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.Ready),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
}
