package main

import (
	"context"
	"fmt"
	"net/http"

	"civic-ledger/config"
	"civic-ledger/internal/adapter/metrics"
	"civic-ledger/internal/adapter/storage/memory"
	pgStorage "civic-ledger/internal/adapter/storage/postgres"
	redisStorage "civic-ledger/internal/adapter/storage/redis"
	"civic-ledger/internal/core/ports"
	"civic-ledger/internal/service"
	"civic-ledger/pkg/logger"

	"github.com/rs/zerolog"
)

// repositories is one storage backend's view of every port.
type repositories struct {
	participants ports.ParticipantRepository
	accounts     ports.AccountRepository
	txns         ports.TransactionRepository
	idempotency  ports.IdempotencyRepository
	rounds       ports.RoundRepository
	candidates   ports.CandidateRepository
	votes        ports.VoteRepository
	endorsements ports.EndorsementRepository
	kyc          ports.KYCRepository
	audit        ports.AuditRepository
	transactor   ports.DBTransactor
	health       ports.HealthChecker
}

// app holds the wired services shared by every subcommand.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	ledger     ports.LedgerService
	tiers      *service.TierGateImpl
	processor  *service.IntentProcessorImpl
	voting     *service.VotingServiceImpl
	candidates ports.CandidateService
	kyc        *service.KYCServiceImpl
	auth       *service.AuthServiceImpl
	audit      *service.AuditServiceImpl
	tokens     *service.JWTTokenService
	signatures *service.HMACSignatureService
	clients    *service.StaticClientRegistry

	idempCache  ports.IdempotencyCache
	nonceStore  ports.NonceStore
	limiter     *redisStorage.RateLimitStore
	metricsHTTP http.Handler
	health      []ports.HealthChecker

	closers []func()
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	repos, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.health = append(a.health, repos.health)

	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.idempCache = redisStorage.NewIdempotencyCache(rdb)
		a.nonceStore = redisStorage.NewNonceStore(rdb)
		a.limiter = redisStorage.NewRateLimitStore(rdb)
		a.health = append(a.health, redisStorage.NewHealthCheck(rdb))
		log.Info().Msg("Redis connected")
	} else {
		log.Warn().Msg("Redis disabled: no idempotency cache, nonce replay check or rate limiting")
	}

	var ledgerMetrics ports.LedgerMetrics = metrics.Noop{}
	if cfg.Metrics.Enabled {
		m := metrics.New()
		ledgerMetrics = m
		a.metricsHTTP = m.Handler()
	}

	policy, err := cfg.Tiers.Policy()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("tier policy: %w", err)
	}

	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key, "kyc-document")
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("encryption service: %w", err)
	}

	a.tokens = service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	a.signatures = service.NewHMACSignatureService()
	a.clients = service.NewStaticClientRegistry(clientsFromConfig(cfg.Clients))

	a.tiers = service.NewTierGate(repos.accounts, repos.txns, repos.transactor, policy, cfg.Ledger.TierWindow, logger.Component(log, "tier_gate"))
	a.processor = service.NewIntentProcessor(
		repos.accounts,
		repos.txns,
		repos.idempotency,
		a.idempCache,
		a.tiers,
		repos.transactor,
		ledgerMetrics,
		cfg.Ledger.IdempotencyTTL,
		logger.Component(log, "processor"),
	)
	a.ledger = service.NewLedgerService(repos.accounts, repos.txns, repos.transactor, logger.Component(log, "ledger"))
	a.voting = service.NewVotingService(repos.rounds, repos.candidates, repos.votes, a.processor, repos.transactor, ledgerMetrics, logger.Component(log, "voting"))
	a.candidates = service.NewCandidateService(repos.candidates, repos.endorsements, logger.Component(log, "candidates"))
	a.kyc = service.NewKYCService(repos.kyc, repos.accounts, a.tiers, encSvc, repos.transactor, logger.Component(log, "kyc"))
	a.auth = service.NewAuthService(
		repos.participants,
		repos.accounts,
		service.NewArgon2HashService(service.DefaultArgon2Params),
		a.tokens,
		cfg.Admins,
	)
	a.audit = service.NewAuditService(repos.audit, logger.Component(log, "audit"))
	a.closers = append(a.closers, a.audit.Close)

	return a, nil
}

func (a *app) openStorage(ctx context.Context) (*repositories, error) {
	if a.cfg.Database.Driver == config.DriverMemory {
		a.log.Warn().Msg("Using the in-memory store; all state is lost on exit")
		s := memory.New()
		return &repositories{
			participants: memory.NewParticipantRepo(s),
			accounts:     memory.NewAccountRepo(s),
			txns:         memory.NewTransactionRepo(s),
			idempotency:  memory.NewIdempotencyRepo(s),
			rounds:       memory.NewRoundRepo(s),
			candidates:   memory.NewCandidateRepo(s),
			votes:        memory.NewVoteRepo(s),
			endorsements: memory.NewEndorsementRepo(s),
			kyc:          memory.NewKYCRepo(s),
			audit:        memory.NewAuditRepo(s),
			transactor:   memory.NewTransactor(s),
			health:       s,
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, a.cfg.Database, a.log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	a.log.Info().Msg("PostgreSQL connected")

	return &repositories{
		participants: pgStorage.NewParticipantRepo(pool),
		accounts:     pgStorage.NewAccountRepo(pool),
		txns:         pgStorage.NewTransactionRepo(pool),
		idempotency:  pgStorage.NewIdempotencyRepo(pool),
		rounds:       pgStorage.NewRoundRepo(pool),
		candidates:   pgStorage.NewCandidateRepo(pool),
		votes:        pgStorage.NewVoteRepo(pool),
		endorsements: pgStorage.NewEndorsementRepo(pool),
		kyc:          pgStorage.NewKYCRepo(pool),
		audit:        pgStorage.NewAuditRepository(pool),
		transactor:   pgStorage.NewTransactor(pool),
		health:       pgStorage.NewHealthCheck(pool),
	}, nil
}

func clientsFromConfig(in []config.ClientConfig) []ports.ServiceClient {
	out := make([]ports.ServiceClient, 0, len(in))
	for _, c := range in {
		out = append(out, ports.ServiceClient{
			Name:      c.Name,
			AccessKey: c.AccessKey,
			Secret:    c.Secret,
			Scopes:    c.Scopes,
		})
	}
	return out
}
