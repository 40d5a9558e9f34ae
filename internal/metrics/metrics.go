package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mutex           sync.RWMutex
	cyclesTotal     int64
	cyclesApplied   int64
	cyclesUnchanged int64
	cyclesFailed    int64
	lastCandidates  int
	lastHealthy     int
	lastCycleTime   time.Time
	lastApplyTime   time.Time
	startTime       time.Time
}

type Snapshot struct {
	CyclesTotal     int64         `json:"cycles_total"`
	CyclesApplied   int64         `json:"cycles_applied"`
	CyclesUnchanged int64         `json:"cycles_unchanged"`
	CyclesFailed    int64         `json:"cycles_failed"`
	LastCandidates  int           `json:"last_candidates"`
	LastHealthy     int           `json:"last_healthy"`
	LastCycleTime   time.Time     `json:"last_cycle_time"`
	LastApplyTime   time.Time     `json:"last_apply_time"`
	Uptime          time.Duration `json:"uptime"`
	Mode            string        `json:"mode"`
}

func (m *Metrics) RecordCycle(outcome string, failed bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.cyclesTotal++
	m.lastCycleTime = time.Now()

	switch {
	case failed:
		m.cyclesFailed++
	case outcome == "APPLIED":
		m.cyclesApplied++
		m.lastApplyTime = time.Now()
	case outcome == "UNCHANGED":
		m.cyclesUnchanged++
	}
}

func (m *Metrics) RecordProbe(candidates, healthy int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.lastCandidates = candidates
	m.lastHealthy = healthy
}

func (m *Metrics) Snapshot(mode string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return Snapshot{
		CyclesTotal:     m.cyclesTotal,
		CyclesApplied:   m.cyclesApplied,
		CyclesUnchanged: m.cyclesUnchanged,
		CyclesFailed:    m.cyclesFailed,
		LastCandidates:  m.lastCandidates,
		LastHealthy:     m.lastHealthy,
		LastCycleTime:   m.lastCycleTime,
		LastApplyTime:   m.lastApplyTime,
		Uptime:          time.Since(m.startTime),
		Mode:            mode,
	}
}

func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}
