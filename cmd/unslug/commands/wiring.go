package commands

import (
	"fmt"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/feed"
	"github.com/wonny/unslug/backend/internal/gate"
	"github.com/wonny/unslug/backend/internal/organisms"
	"github.com/wonny/unslug/backend/internal/scan"
	"github.com/wonny/unslug/backend/internal/storage"
	"github.com/wonny/unslug/backend/internal/strategycfg"
	"github.com/wonny/unslug/backend/pkg/config"
	"github.com/wonny/unslug/backend/pkg/database"
	"github.com/wonny/unslug/backend/pkg/httputil"
	"github.com/wonny/unslug/backend/pkg/logger"
	"github.com/wonny/unslug/backend/pkg/redis"
)

// stack holds the wired dependencies shared by the CLI commands.
type stack struct {
	cfg          *config.Config
	log          *logger.Logger
	db           *database.DB
	redis        *redis.Client
	signalCache  *redis.SignalCache
	signals      *storage.SignalRepository
	approvals    *storage.ApprovalRepository
	approver     *gate.Approver
	strategy     *strategycfg.Config
	strategyHash string
	source       contracts.DataSource
	engine       *organisms.Engine
}

// buildStack loads config and connects every dependency. Callers must
// Close() the result.
func buildStack() (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	strategy, _, err := strategycfg.Load(cfg.StrategyPath)
	if err != nil {
		db.Close()
		rdb.Close()
		return nil, fmt.Errorf("load strategy config: %w", err)
	}

	hash, err := strategycfg.Hash(strategy)
	if err != nil {
		db.Close()
		rdb.Close()
		return nil, fmt.Errorf("hash strategy config: %w", err)
	}

	httpClient := httputil.New(cfg, log)
	stooq := feed.NewStooqSource(httpClient, cfg.Feed.StooqBaseURL, log)
	cboe := feed.NewCboeScraper(httpClient, cfg.Feed.CboeBaseURL, log)
	source := feed.NewEnrichedSource(stooq, cboe, log)

	signals := storage.NewSignalRepository(db.Pool)
	approvals := storage.NewApprovalRepository(db.Pool)
	approver := gate.NewApprover(signals, approvals, contracts.SystemClock{}, log)

	return &stack{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        rdb,
		signalCache:  redis.NewSignalCache(rdb),
		signals:      signals,
		approvals:    approvals,
		approver:     approver,
		strategy:     strategy,
		strategyHash: hash,
		source:       source,
		engine:       organisms.NewEngine(strategy, log),
	}, nil
}

// newRunner builds a scan runner on top of the stack. broadcaster may be
// nil for one-shot runs.
func (s *stack) newRunner(broadcaster scan.Broadcaster) (*scan.Runner, error) {
	return scan.NewRunner(scan.Options{
		Engine:      s.engine,
		Config:      s.strategy,
		ConfigHash:  s.strategyHash,
		Source:      s.source,
		Signals:     s.signals,
		Clock:       contracts.SystemClock{},
		Log:         s.log,
		Interval:    s.cfg.Scan.Interval,
		Lookback:    s.cfg.Scan.LookbackDays,
		Workers:     s.cfg.Scan.Workers,
		Broadcaster: broadcaster,
		Cache:       s.signalCache,
	})
}

// Close releases the stack's connections.
func (s *stack) Close() {
	if s.redis != nil {
		s.redis.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}
