package stats

import (
	"fmt"
	"sort"
	"time"
)

// SystemStats is the process-wide snapshot block.
type SystemStats struct {
	StartupTime     time.Time `json:"startupTime"`
	Uptime          float64   `json:"uptime"`
	UptimeFormatted string    `json:"uptimeFormatted"`
	TotalCalls      int       `json:"totalCalls"`
	ActiveCalls     int       `json:"activeCalls"`
	PeakChannels    int       `json:"peakChannels"`
}

// ExtensionReport is the per-extension snapshot with derived rates.
type ExtensionReport struct {
	ExtensionCounters
	CurrentCallDuration float64 `json:"currentCallDuration"`
	AverageTalkTime     float64 `json:"averageTalkTime"`
	AnswerRate          float64 `json:"answerRate"`
}

// System snapshots the process-wide counters.
func (a *Aggregator) System() SystemStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	now := a.now()
	uptime := now.Sub(a.startup).Seconds()
	return SystemStats{
		StartupTime:     a.startup,
		Uptime:          uptime,
		UptimeFormatted: FormatUptime(uptime),
		TotalCalls:      a.totalCalls,
		ActiveCalls:     len(a.calls),
		PeakChannels:    a.peakCalls,
	}
}

// Extensions snapshots every extension's counters, sorted by id.
func (a *Aggregator) Extensions() []ExtensionReport {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]ExtensionReport, 0, len(a.extensions))
	for _, ext := range a.extensions {
		out = append(out, a.report(ext))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Extension < out[j].Extension })
	return out
}

// Extension snapshots one extension's counters, or false when it was never
// seen.
func (a *Aggregator) Extension(id string) (ExtensionReport, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ext, ok := a.extensions[id]
	if !ok {
		return ExtensionReport{}, false
	}
	return a.report(ext), true
}

// Queues snapshots every queue's counters with the derived service level,
// sorted by name.
func (a *Aggregator) Queues() []QueueCounters {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]QueueCounters, 0, len(a.queues))
	for _, q := range a.queues {
		c := *q
		c.ServiceLevel = serviceLevel(q)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Queue snapshots one queue's counters, or false when it was never seen.
func (a *Aggregator) Queue(name string) (QueueCounters, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	q, ok := a.queues[name]
	if !ok {
		return QueueCounters{}, false
	}
	c := *q
	c.ServiceLevel = serviceLevel(q)
	return c, true
}

func (a *Aggregator) report(ext *ExtensionCounters) ExtensionReport {
	r := ExtensionReport{ExtensionCounters: *ext}
	now := a.now()
	if ext.CurrentCallStart != nil {
		r.CurrentCallDuration = now.Sub(*ext.CurrentCallStart).Seconds()
	}
	if ext.AnsweredCalls > 0 {
		r.AverageTalkTime = ext.TotalTalkTime / float64(ext.AnsweredCalls)
	}
	if ext.TotalCalls > 0 {
		r.AnswerRate = float64(ext.AnsweredCalls) / float64(ext.TotalCalls) * 100
	}
	return r
}

// FormatUptime renders seconds as "1d 2h 3m 4s".
func FormatUptime(seconds float64) string {
	s := int(seconds)
	days := s / 86400
	hours := (s % 86400) / 3600
	minutes := (s % 3600) / 60
	secs := s % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, secs)
}
