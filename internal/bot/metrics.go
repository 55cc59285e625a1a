package bot

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	updates     *prometheus.CounterVec
	redemptions *prometheus.CounterVec
	codesIssued *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_updates_total",
			Help: "Inbound chat events by kind and resolved role.",
		}, []string{"kind", "role"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_redemptions_total",
			Help: "Code redemption attempts by outcome.",
		}, []string{"outcome"}),
		codesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_codes_issued_total",
			Help: "Daily codes handed out, by who asked and whether a new row was created.",
		}, []string{"by", "created"}),
	}
	if reg != nil {
		reg.MustRegister(m.updates, m.redemptions, m.codesIssued)
	}
	return m
}
