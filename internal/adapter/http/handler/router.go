package handler

import (
	"net/http"

	"civic-ledger/internal/adapter/http/middleware"
	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	LedgerSvc      ports.LedgerService
	TierSvc        ports.TierService
	Processor      ports.IntentProcessor
	VotingSvc      ports.VotingService
	CandidateSvc   ports.CandidateService
	KYCSvc         ports.KYCService
	Clients        ports.ClientRegistry
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore // nil = nonce replay check disabled
	TokenSvc       ports.TokenService
	RateLimiter    middleware.Limiter // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Metrics        http.Handler       // nil = no /metrics endpoint
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20))
	r.Use(middleware.RequireJSON())

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- Participant routes (JWT) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	wallet := NewWalletHandler(deps.LedgerSvc, deps.TierSvc, deps.Processor)
	voting := NewVotingHandler(deps.VotingSvc, deps.CandidateSvc)
	kyc := NewKYCHandler(deps.KYCSvc)

	participant := v1.Group("", jwtAuth)
	{
		participant.GET("/wallet", rl("read"), wallet.GetWallet)
		participant.GET("/wallet/limits", rl("read"), wallet.GetLimits)
		participant.GET("/transactions", rl("read"), wallet.ListTransactions)
		participant.POST("/withdraw", rl("spend"), wallet.Withdraw)
		participant.POST("/donate", rl("spend"), wallet.Donate)
		participant.POST("/transfer", rl("spend"), wallet.Transfer)

		participant.POST("/vote", rl("vote"), voting.CastVote)
		participant.GET("/rounds", rl("read"), voting.ListRounds)
		participant.GET("/rounds/:id", rl("read"), voting.GetRound)
		participant.GET("/candidates/:id", rl("read"), voting.GetCandidate)
		participant.POST("/candidates/:id/endorsements", rl("spend"), voting.Endorse)

		participant.POST("/kyc/submit", rl("kyc"), kyc.Submit)
	}

	// --- Service client routes (HMAC) ---
	hmacAuth := middleware.HMACAuth(deps.Clients, deps.SigSvc, deps.NonceStore, deps.Logger)
	intents := NewIntentHandler(deps.Processor)
	internal := v1.Group("/internal", hmacAuth)
	{
		internal.POST("/intents", middleware.RequireScope(ports.ScopeIntents), rl("intents"), intents.Post)
		internal.POST("/kyc/decisions", middleware.RequireScope(ports.ScopeKYC), rl("intents"), kyc.Decide)
	}

	// --- Operator routes (JWT + admin role) ---
	admin := NewAdminHandler(deps.LedgerSvc, deps.TierSvc, deps.Processor, deps.VotingSvc, deps.CandidateSvc)
	ops := v1.Group("/admin", jwtAuth, middleware.RequireRole(domain.RoleAdmin), rl("admin"))
	{
		ops.POST("/rounds", admin.CreateRound)
		ops.POST("/rounds/sweep", admin.SweepRounds)

		ops.POST("/candidates", admin.CreateCandidate)
		ops.POST("/candidates/:id/vetting", admin.AdvanceVetting)
		ops.POST("/candidates/:id/recompute", admin.RecomputeScore)
		ops.POST("/candidates/:id/tally/recount", admin.RecountTally)

		ops.POST("/accounts/:id/tier/revoke", admin.RevokeTier)
		ops.POST("/accounts/:id/deactivate", admin.Deactivate)
		ops.GET("/accounts/:id/reconcile", admin.Reconcile)

		ops.POST("/transactions/:id/reverse", admin.Reverse)
	}

	return r
}
