package plugin

import (
	"sync"
	"testing"
	"time"
)

// fakeSampler returns a queue of canned (cpu, mem) readings, repeating the
// last one once the queue is exhausted.
type fakeSampler struct {
	mu       sync.Mutex
	readings []fakeReading
	idx      int
	cur      fakeReading
}

type fakeReading struct {
	cpu float64
	mem float64
}

func (s *fakeSampler) next() fakeReading {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.readings) {
		return s.readings[len(s.readings)-1]
	}
	r := s.readings[s.idx]
	s.idx++
	return r
}

// CPUPercent advances to the next reading; MemoryMB reports the memory half
// of that same reading, so each sample consumes exactly one (cpu, mem) pair.
func (s *fakeSampler) CPUPercent() (float64, error) {
	r := s.next()
	s.mu.Lock()
	s.cur = r
	s.mu.Unlock()
	return r.cpu, nil
}

func (s *fakeSampler) MemoryMB() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.mem, nil
}

type fakeKiller struct {
	mu     sync.Mutex
	killed []PluginKey
}

func (k *fakeKiller) KillPlugin(agentID, pluginType string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.killed = append(k.killed, PluginKey{AgentID: agentID, PluginType: pluginType})
}

func (k *fakeKiller) wasKilled(agentID, pluginType string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range k.killed {
		if key.AgentID == agentID && key.PluginType == pluginType {
			return true
		}
	}
	return false
}

func TestResourceMonitor_TracksPeakAndAverage(t *testing.T) {
	sampler := &fakeSampler{readings: []fakeReading{{cpu: 10, mem: 100}, {cpu: 30, mem: 200}}}
	kill := &fakeKiller{}
	mon := newResourceMonitor(50, 500, time.Hour, 3, sampler, kill)
	mon.RegisterPlugin("agent1", "crm")

	mon.sampleAll()
	mon.sampleAll()

	stats, ok := mon.GetPluginStats("agent1", "crm")
	if !ok {
		t.Fatal("expected stats to exist")
	}
	if stats.CPUPeak != 30 {
		t.Errorf("expected cpu peak 30, got %v", stats.CPUPeak)
	}
	if stats.MemoryPeak != 200 {
		t.Errorf("expected memory peak 200, got %v", stats.MemoryPeak)
	}
	if stats.SampleCount != 2 {
		t.Errorf("expected 2 samples, got %d", stats.SampleCount)
	}
	if stats.CPUAvg != 20 {
		t.Errorf("expected cpu avg 20, got %v", stats.CPUAvg)
	}
}

func TestResourceMonitor_DividesUsageAcrossRegisteredPlugins(t *testing.T) {
	sampler := &fakeSampler{readings: []fakeReading{{cpu: 40, mem: 400}}}
	kill := &fakeKiller{}
	mon := newResourceMonitor(50, 500, time.Hour, 3, sampler, kill)
	mon.RegisterPlugin("agent1", "crm")
	mon.RegisterPlugin("agent1", "helper")

	mon.sampleAll()

	s1, _ := mon.GetPluginStats("agent1", "crm")
	s2, _ := mon.GetPluginStats("agent1", "helper")
	if s1.CPUPercent != 20 || s2.CPUPercent != 20 {
		t.Errorf("expected usage split equally across 2 plugins, got %v and %v", s1.CPUPercent, s2.CPUPercent)
	}
}

func TestResourceMonitor_KillsPluginAfterSustainedViolations(t *testing.T) {
	sampler := &fakeSampler{readings: []fakeReading{{cpu: 90, mem: 100}}}
	kill := &fakeKiller{}
	mon := newResourceMonitor(50, 500, time.Hour, 3, sampler, kill)
	mon.RegisterPlugin("agent1", "crm")

	mon.sampleAll()
	mon.sampleAll()
	if kill.wasKilled("agent1", "crm") {
		t.Fatal("expected plugin not to be killed before reaching the violation threshold")
	}
	mon.sampleAll()

	if !kill.wasKilled("agent1", "crm") {
		t.Error("expected plugin to be killed after 3 sustained violations")
	}
	if _, ok := mon.GetPluginStats("agent1", "crm"); ok {
		t.Error("expected killed plugin's stats to be removed")
	}
}

func TestResourceMonitor_NoViolationUnderLimits(t *testing.T) {
	sampler := &fakeSampler{readings: []fakeReading{{cpu: 5, mem: 50}}}
	kill := &fakeKiller{}
	mon := newResourceMonitor(50, 500, time.Hour, 3, sampler, kill)
	mon.RegisterPlugin("agent1", "crm")

	for i := 0; i < 5; i++ {
		mon.sampleAll()
	}

	stats, _ := mon.GetPluginStats("agent1", "crm")
	if stats.Violations != 0 {
		t.Errorf("expected 0 violations while under both limits, got %d", stats.Violations)
	}
	if kill.wasKilled("agent1", "crm") {
		t.Error("expected plugin never killed")
	}
}

func TestResourceMonitor_UnregisterStopsTracking(t *testing.T) {
	sampler := &fakeSampler{readings: []fakeReading{{cpu: 10, mem: 10}}}
	kill := &fakeKiller{}
	mon := newResourceMonitor(50, 500, time.Hour, 3, sampler, kill)
	mon.RegisterPlugin("agent1", "crm")
	mon.UnregisterPlugin("agent1", "crm")

	if _, ok := mon.GetPluginStats("agent1", "crm"); ok {
		t.Error("expected unregistered plugin to have no stats")
	}
}

func TestResourceMonitor_StartStopWithNilSampler(t *testing.T) {
	mon := newResourceMonitor(50, 500, time.Millisecond, 3, nil, &fakeKiller{})
	mon.Start(nil)
	mon.Stop()
}
