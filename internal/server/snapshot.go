package server

import (
	"sort"
	"time"

	"github.com/enmanuelbasulto/fop2-clone/internal/models"
	"github.com/enmanuelbasulto/fop2-clone/internal/state"
	"github.com/enmanuelbasulto/fop2-clone/internal/stats"
)

// ExtensionSummary merges the live status from the state store with the
// derived counters from the aggregator into one panel-facing row.
type ExtensionSummary struct {
	stats.ExtensionReport
	Status        models.ExtensionStatus `json:"status"`
	StatusHistory []models.StatusChange  `json:"statusHistory,omitempty"`
}

// QueueSummary merges the queue entity view with the aggregator's service
// level.
type QueueSummary struct {
	state.QueueView
	ServiceLevel int `json:"serviceLevel"`
}

// StatsSnapshot is the full payload of the periodic statsUpdate broadcast
// and of the stats API.
type StatsSnapshot struct {
	System      SystemSummary          `json:"system"`
	Extensions  []ExtensionSummary     `json:"extensions"`
	Queues      []QueueSummary         `json:"queues"`
	ActiveCalls []models.Call          `json:"activeCalls"`
	RecentCalls []models.CompletedCall `json:"recentCalls"`
	Timestamp   time.Time              `json:"timestamp"`
}

// SystemSummary extends the aggregator's system block with the store's
// retained completed-call count.
type SystemSummary struct {
	stats.SystemStats
	CompletedCalls int `json:"completedCalls"`
}

// recentCallLimit matches the original panel's recent-calls pane.
const recentCallLimit = 50

func buildSnapshot(st *state.Store, agg *stats.Aggregator) StatsSnapshot {
	snap := StatsSnapshot{
		System: SystemSummary{
			SystemStats:    agg.System(),
			CompletedCalls: st.CompletedCount(),
		},
		ActiveCalls: st.ActiveCalls(),
		RecentCalls: st.RecentCalls(recentCallLimit),
		Timestamp:   time.Now(),
	}

	// Union of store and aggregator extensions: the store knows status for
	// extensions that never placed a call, the aggregator knows counters for
	// callers whose status never changed.
	byID := make(map[string]*ExtensionSummary)
	order := make([]string, 0)
	for _, r := range agg.Extensions() {
		s := &ExtensionSummary{ExtensionReport: r, Status: models.StatusUnknown}
		byID[r.Extension] = s
		order = append(order, r.Extension)
	}
	for _, ext := range st.Extensions() {
		s, ok := byID[ext.ID]
		if !ok {
			s = &ExtensionSummary{}
			s.Extension = ext.ID
			byID[ext.ID] = s
			order = append(order, ext.ID)
		}
		s.Status = ext.Status
		s.StatusHistory = ext.StatusHistory
	}
	sort.Strings(order)
	snap.Extensions = make([]ExtensionSummary, 0, len(order))
	for _, id := range order {
		snap.Extensions = append(snap.Extensions, *byID[id])
	}

	queues := st.Queues()
	snap.Queues = make([]QueueSummary, 0, len(queues))
	for _, qv := range queues {
		snap.Queues = append(snap.Queues, QueueSummary{
			QueueView:    qv,
			ServiceLevel: agg.ServiceLevel(qv.Queue.Name),
		})
	}
	return snap
}
