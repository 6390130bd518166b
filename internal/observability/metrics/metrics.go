package metrics

import "github.com/prometheus/client_golang/prometheus"

// AppMetrics exposes counters/histograms for the search, import and chat flows.
type AppMetrics struct {
	searchesTotal  prometheus.Counter
	importRows     *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	chatReplies    *prometheus.CounterVec
}

func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		searchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sisarm",
			Subsystem: "catalog",
			Name:      "searches_total",
			Help:      "Total catalog searches served",
		}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sisarm",
			Subsystem: "importer",
			Name:      "rows_total",
			Help:      "Import rows by outcome",
		}, []string{"mode", "outcome"}),
		importDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sisarm",
			Subsystem: "importer",
			Name:      "commit_duration_seconds",
			Help:      "Duration of import commits",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		chatReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sisarm",
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Chat replies by source of the answer",
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.searchesTotal, m.importRows, m.importDuration, m.chatReplies)
	return m
}

func (m *AppMetrics) ObserveSearch() {
	if m == nil {
		return
	}
	m.searchesTotal.Inc()
}

func (m *AppMetrics) ObserveImportRows(mode, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importRows.WithLabelValues(mode, outcome).Add(float64(n))
}

func (m *AppMetrics) ObserveImportDuration(mode string, seconds float64) {
	if m == nil {
		return
	}
	m.importDuration.WithLabelValues(mode).Observe(seconds)
}

// ObserveChatReply records where a reply came from: "upstream", "rules",
// "menu", "default".
func (m *AppMetrics) ObserveChatReply(source string) {
	if m == nil {
		return
	}
	m.chatReplies.WithLabelValues(source).Inc()
}
