package core

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"popcorn/internal/clients/completion"
	"popcorn/internal/clients/metadata"
	"popcorn/internal/config"
	"popcorn/internal/database/models"
	"popcorn/internal/retry"
	"popcorn/internal/search"
	"popcorn/internal/utils"
)

type Manager struct {
	cfgMu  sync.RWMutex
	config *config.Config

	db         *sql.DB
	tmdb       *metadata.TMDBClient
	completion *completion.Client
	cache      metadata.Cache
	userLists  *models.UserListRepository
	resolver   *search.Resolver
	pipeline   *search.Pipeline
	logger     *utils.Logger
	scheduler  *cron.Cron
	startedAt  time.Time

	sessionsMu sync.Mutex
	sessions   map[string]*sessionEntry
}

// NewManager builds the upstream clients from cfg. cache may be nil.
func NewManager(cfg *config.Config, db *sql.DB, cache metadata.Cache, logger *utils.Logger) *Manager {
	tmdb := metadata.NewTMDBClient(metadata.TMDBConfig{
		APIKey:            cfg.TMDB.APIKey,
		BaseURL:           cfg.TMDB.BaseURL,
		Language:          cfg.TMDB.Language,
		Timeout:           config.ParseDuration(cfg.TMDB.Timeout, 10*time.Second),
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
		CacheTTL:          config.ParseDuration(cfg.TMDB.CacheTTL, 6*time.Hour),
		Cache:             cache,
	})

	completionRetry := retry.DefaultConfig()
	completionRetry.MaxAttempts = cfg.Completion.MaxAttempts
	llm := completion.NewClient(completion.Config{
		APIKey:  cfg.Completion.APIKey,
		BaseURL: cfg.Completion.BaseURL,
		Model:   cfg.Completion.Model,
		Timeout: config.ParseDuration(cfg.Completion.Timeout, 30*time.Second),
		Retry:   completionRetry,
	})

	if !tmdb.Enabled() {
		logger.Warn("TMDB api key not set, catalogue and search lookups will fail")
	}
	if !llm.Enabled() {
		logger.Warn("Completion api key not set, natural-language search will return no results")
	}

	resolver := search.NewResolver(tmdb, cfg.Search.Concurrency, logger)

	m := &Manager{
		config:     cfg,
		db:         db,
		tmdb:       tmdb,
		completion: llm,
		cache:      cache,
		resolver:   resolver,
		pipeline:   search.NewPipeline(llm, resolver, logger),
		logger:     logger,
		scheduler:  cron.New(),
		startedAt:  time.Now(),
		sessions:   make(map[string]*sessionEntry),
	}
	if db != nil {
		m.userLists = models.NewUserListRepository(db)
	}
	return m
}

// Config returns the active configuration.
func (m *Manager) Config() *config.Config {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return m.config
}

// ApplyConfig takes the hot-reloadable settings from a reloaded config.
// Upstream credentials and listen addresses need a restart.
func (m *Manager) ApplyConfig(next *config.Config) {
	m.cfgMu.Lock()
	updated := *m.config
	updated.App.Debug = next.App.Debug
	updated.Search.Debounce = next.Search.Debounce
	updated.Search.PipelineTimeout = next.Search.PipelineTimeout
	updated.Search.SessionIdleTimeout = next.Search.SessionIdleTimeout
	updated.Search.MaxQueryLength = next.Search.MaxQueryLength
	m.config = &updated
	m.cfgMu.Unlock()

	m.logger.SetDebug(next.App.Debug)
	m.logger.Info("Applied reloaded settings, debug:", next.App.Debug)
}

func (m *Manager) StartScheduler() error {
	cfg := m.Config()
	warm := config.ParseDuration(cfg.Automation.WarmInterval, 30*time.Minute)
	reap := config.ParseDuration(cfg.Automation.ReapInterval, time.Minute)

	if _, err := m.scheduler.AddFunc("@every "+warm.String(), m.warmCatalogue); err != nil {
		return fmt.Errorf("failed to schedule catalogue warm-up: %w", err)
	}
	if _, err := m.scheduler.AddFunc("@every "+reap.String(), m.reapIdleSessions); err != nil {
		return fmt.Errorf("failed to schedule session reaper: %w", err)
	}
	m.scheduler.Start()
	m.logger.Info("Scheduler started, warm every", warm, "reap every", reap)

	if cfg.Automation.WarmOnStartup {
		go m.warmCatalogue()
	}
	return nil
}

// Stop halts scheduled jobs and shuts down every live search session.
func (m *Manager) Stop() {
	if m.scheduler != nil {
		<-m.scheduler.Stop().Done()
	}
	m.shutdownSessions()
}

// warmCatalogue fetches the landing page lists so they are served from cache.
func (m *Manager) warmCatalogue() {
	if !m.tmdb.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	if _, err := m.tmdb.Trending(ctx, 1); err != nil {
		m.logger.Error("Warm-up of trending failed:", err)
	}
	if _, err := m.tmdb.Popular(ctx, 1); err != nil {
		m.logger.Error("Warm-up of popular failed:", err)
	}
	if _, err := m.tmdb.Upcoming(ctx, 1); err != nil {
		m.logger.Error("Warm-up of upcoming failed:", err)
	}
	if _, err := m.tmdb.Genres(ctx); err != nil {
		m.logger.Error("Warm-up of genres failed:", err)
	}
	m.logger.Debug("Catalogue warm-up finished in", time.Since(start).Round(time.Millisecond))
}

type MemoryStatus struct {
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

type SystemStatus struct {
	Uptime          string        `json:"uptime"`
	TMDB            bool          `json:"tmdb"`
	Completion      bool          `json:"completion"`
	CompletionModel string        `json:"completion_model"`
	Cache           bool          `json:"cache"`
	Database        bool          `json:"database"`
	ActiveSessions  int           `json:"active_sessions"`
	CPUPercent      float64       `json:"cpu_percent"`
	Memory          *MemoryStatus `json:"memory,omitempty"`
}

func (m *Manager) GetSystemStatus(ctx context.Context) SystemStatus {
	status := SystemStatus{
		Uptime:          time.Since(m.startedAt).Round(time.Second).String(),
		TMDB:            m.tmdb.Enabled(),
		Completion:      m.completion.Enabled(),
		CompletionModel: m.completion.Model(),
		ActiveSessions:  m.ActiveSessions(),
	}

	if m.cache != nil {
		status.Cache = m.cache.Ping(ctx) == nil
	}
	if m.db != nil {
		status.Database = m.db.PingContext(ctx) == nil
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.Memory = &MemoryStatus{TotalBytes: vm.Total, UsedBytes: vm.Used, UsedPercent: vm.UsedPercent}
	} else {
		m.logger.Debug("Memory stats unavailable:", err)
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	}

	return status
}
