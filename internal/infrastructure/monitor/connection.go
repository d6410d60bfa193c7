package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/taskbot/internal/infrastructure/buffer"
)

// JobCounter reports how many reminder jobs are pending.
type JobCounter interface {
	Len() int
}

type Monitor struct {
	pg     *pgxpool.Pool
	redis  *redislib.Client
	buffer *buffer.Store
	jobs   JobCounter

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// New builds a monitor; any of pg, redis, buf and jobs may be nil.
func New(pg *pgxpool.Pool, redis *redislib.Client, buf *buffer.Store, jobs JobCounter, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		pg:       pg,
		redis:    redis,
		buffer:   buf,
		jobs:     jobs,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Refresh probes every dependency now.
func (m *Monitor) Refresh() Status {
	outbox, size := m.checkBuffer()
	status := Status{
		PostgreSQL: m.checkPostgres(),
		Redis:      m.checkRedis(),
		Outbox:     outbox,
		OutboxSize: size,
		LastCheck:  time.Now(),
	}
	if m.jobs != nil {
		status.ScheduledJobs = m.jobs.Len()
	}

	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	if !prev.LastCheck.IsZero() && prev.Healthy() != status.Healthy() {
		m.logger.Warn("dependency health changed",
			zap.Bool("healthy", status.Healthy()),
			zap.Bool("postgresql", status.PostgreSQL.Healthy),
			zap.Bool("redis", status.Redis.Healthy))
	}
	return status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) checkPostgres() Probe {
	if m.pg == nil {
		return Probe{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return Probe{Configured: true, Healthy: m.pg.Ping(ctx) == nil}
}

func (m *Monitor) checkRedis() Probe {
	if m.redis == nil {
		return Probe{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return Probe{Configured: true, Healthy: m.redis.Ping(ctx).Err() == nil}
}

func (m *Monitor) checkBuffer() (Probe, int) {
	if m.buffer == nil {
		return Probe{}, 0
	}
	size, err := m.buffer.Size()
	if err != nil {
		m.logger.Warn("outbox size check failed", zap.Error(err))
		return Probe{Configured: true}, size
	}
	return Probe{Configured: true, Healthy: true}, size
}
