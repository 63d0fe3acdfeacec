package worker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/primedrive/backend/internal/pkg/database"
	"github.com/primedrive/backend/internal/pkg/env"
	"github.com/primedrive/backend/internal/pkg/orangemoney"
	"github.com/primedrive/backend/internal/pkg/subscription"
)

// Manager runs the periodic ledger maintenance: sweeping stale pending
// payments and downgrading lapsed subscriptions.
type Manager struct {
	sweepTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global maintenance manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// Start starts the background maintenance worker
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so the manager can be
	// restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true

	interval := 60
	if v, err := strconv.Atoi(env.GetEnv("MAINTENANCE_INTERVAL_MINUTES", "60")); err == nil && v > 0 {
		interval = v
	}

	log.Infof("[Maintenance] Starting ledger maintenance worker (interval: %d minutes)", interval)
	m.sweepTicker = time.NewTicker(time.Duration(interval) * time.Minute)
	m.wg.Add(1)
	go m.maintenanceWorker()
}

// Stop stops the background maintenance worker
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Maintenance] Stopping ledger maintenance worker...")

	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}

	close(m.stopCh)
	m.running = false

	m.wg.Wait()
	log.Info("[Maintenance] Stopped successfully")
}

// maintenanceWorker runs one pass at startup and then on every tick, so a
// freshly restarted instance catches up immediately.
func (m *Manager) maintenanceWorker() {
	defer m.wg.Done()

	m.runMaintenance()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Maintenance] Worker stopping")
			return
		case <-m.sweepTicker.C:
			m.runMaintenance()
		}
	}
}

func (m *Manager) runMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc := subscription.NewServiceFromDB(database.GetDB(), orangemoney.GetClient(), subscription.ConfigFromEnv())

	if swept, err := svc.ExpireStalePending(ctx); err != nil {
		log.Errorf("[Maintenance] Stale payment sweep failed: %v", err)
	} else if swept > 0 {
		log.Infof("[Maintenance] Swept %d stale pending payments", swept)
	}

	if changed, err := svc.DowngradeExpired(ctx); err != nil {
		log.Errorf("[Maintenance] Expired subscription downgrade failed: %v", err)
	} else if changed > 0 {
		log.Infof("[Maintenance] Downgraded %d expired subscriptions", changed)
	}
}
