package plugin

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// processSampler is the thin seam over gopsutil's process snapshot, so tests
// can drive deterministic CPU/memory sequences without depending on actual
// process load.
type processSampler interface {
	CPUPercent() (float64, error)
	MemoryMB() (float64, error)
}

type gopsutilSampler struct {
	proc *process.Process
}

func newGopsutilSampler() (processSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &gopsutilSampler{proc: proc}, nil
}

func (s *gopsutilSampler) CPUPercent() (float64, error) {
	return s.proc.CPUPercent()
}

func (s *gopsutilSampler) MemoryMB() (float64, error) {
	info, err := s.proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / (1024 * 1024), nil
}

// PluginResourceStats is the Go port of the original's PluginResourceStats
// dataclass: current/peak/rolling-average CPU and memory for one plugin
// instance, attributed by equally dividing the whole process's usage across
// every currently-registered plugin (the original's documented
// simplification - this is not per-plugin-thread attribution).
type PluginResourceStats struct {
	AgentID    string
	PluginType string

	CPUPercent float64
	MemoryMB   float64
	CPUPeak    float64
	MemoryPeak float64
	CPUAvg     float64
	MemoryAvg  float64

	SampleCount int
	Violations  int

	LastSampleTime time.Time
	StartedAt      time.Time
}

// killer is satisfied by *Manager; kept as an interface so the monitor can
// be tested against a fake that records kills without a real Manager.
type killer interface {
	KillPlugin(agentID, pluginType string)
}

// ResourceMonitor is the Go port of PluginResourceMonitor: a background
// ticker loop that samples process-wide CPU/memory, attributes an equal
// share to each registered plugin, and kills any plugin once it has
// accumulated violation_threshold over-limit samples (not necessarily
// consecutive; the count is never reset).
type ResourceMonitor struct {
	cpuLimit           float64
	memLimitMB         float64
	sampleInterval     time.Duration
	violationThreshold int

	sampler processSampler // nil when gopsutil is unavailable: monitor is a no-op
	kill    killer

	mu    sync.Mutex
	stats map[PluginKey]*PluginResourceStats

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewResourceMonitor builds a monitor reading the current process's own
// usage. If gopsutil can't resolve the current process, the monitor is
// still returned but Start is a no-op - per spec, disabling the monitor
// when the sampling library is unavailable is allowed.
func NewResourceMonitor(cpuLimitPercent, memLimitMB float64, sampleInterval time.Duration, violationThreshold int, kill killer) *ResourceMonitor {
	sampler, err := newGopsutilSampler()
	if err != nil {
		slog.Warn("plugin resource monitor disabled: could not resolve process handle", "error", err)
		sampler = nil
	}
	return newResourceMonitor(cpuLimitPercent, memLimitMB, sampleInterval, violationThreshold, sampler, kill)
}

func newResourceMonitor(cpuLimitPercent, memLimitMB float64, sampleInterval time.Duration, violationThreshold int, sampler processSampler, kill killer) *ResourceMonitor {
	return &ResourceMonitor{
		cpuLimit:           cpuLimitPercent,
		memLimitMB:         memLimitMB,
		sampleInterval:     sampleInterval,
		violationThreshold: violationThreshold,
		sampler:            sampler,
		kill:               kill,
		stats:              make(map[PluginKey]*PluginResourceStats),
	}
}

func (r *ResourceMonitor) RegisterPlugin(agentID, pluginType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := PluginKey{AgentID: agentID, PluginType: pluginType}
	if _, ok := r.stats[key]; ok {
		return
	}
	r.stats[key] = &PluginResourceStats{AgentID: agentID, PluginType: pluginType, StartedAt: time.Now().UTC()}
}

func (r *ResourceMonitor) UnregisterPlugin(agentID, pluginType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stats, PluginKey{AgentID: agentID, PluginType: pluginType})
}

// Start spawns the sampling loop, the same ticker/select shape as
// voice/session.go's monitorSessions. A nil sampler makes this a no-op.
func (r *ResourceMonitor) Start(ctx context.Context) {
	if r.sampler == nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go r.run(ctx)
}

func (r *ResourceMonitor) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *ResourceMonitor) run(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sampleAll()
		}
	}
}

func (r *ResourceMonitor) sampleAll() {
	cpu, err := r.sampler.CPUPercent()
	if err != nil {
		slog.Warn("plugin resource monitor: cpu sample failed", "error", err)
		return
	}
	mem, err := r.sampler.MemoryMB()
	if err != nil {
		slog.Warn("plugin resource monitor: memory sample failed", "error", err)
		return
	}

	r.mu.Lock()
	n := len(r.stats)
	if n == 0 {
		r.mu.Unlock()
		return
	}
	perCPU := cpu / float64(n)
	perMem := mem / float64(n)

	var toKill []PluginKey
	for key, s := range r.stats {
		r.updateStats(s, perCPU, perMem)
		if s.Violations >= r.violationThreshold {
			toKill = append(toKill, key)
		}
	}
	for _, key := range toKill {
		delete(r.stats, key)
	}
	r.mu.Unlock()

	for _, key := range toKill {
		r.kill.KillPlugin(key.AgentID, key.PluginType)
	}
}

func (r *ResourceMonitor) updateStats(s *PluginResourceStats, cpu, mem float64) {
	s.CPUPercent = cpu
	s.MemoryMB = mem
	if cpu > s.CPUPeak {
		s.CPUPeak = cpu
	}
	if mem > s.MemoryPeak {
		s.MemoryPeak = mem
	}
	s.CPUAvg = rollingAvg(s.CPUAvg, cpu, s.SampleCount)
	s.MemoryAvg = rollingAvg(s.MemoryAvg, mem, s.SampleCount)
	s.SampleCount++
	s.LastSampleTime = time.Now().UTC()

	// Violations accumulate across the plugin's lifetime rather than
	// resetting on a clean sample: the original counts cumulative
	// over-limit samples, not a consecutive streak.
	if cpu > r.cpuLimit || mem > r.memLimitMB {
		s.Violations++
	}
}

func rollingAvg(prevAvg, sample float64, count int) float64 {
	return (prevAvg*float64(count) + sample) / float64(count+1)
}

func (r *ResourceMonitor) GetPluginStats(agentID, pluginType string) (PluginResourceStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[PluginKey{AgentID: agentID, PluginType: pluginType}]
	if !ok {
		return PluginResourceStats{}, false
	}
	return *s, true
}

func (r *ResourceMonitor) GetStats() []PluginResourceStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PluginResourceStats, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, *s)
	}
	return out
}
