package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ScoringRunsTotal.WithLabelValues("computed").Inc()
	m.CacheHitsTotal.Add(2)
	m.CorpusDocuments.Set(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	values := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[mf.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[mf.GetName()] += metric.GetGauge().GetValue()
			}
		}
	}
	if values["tfidf_scoring_runs_total"] != 1 {
		t.Errorf("scoring runs = %v", values["tfidf_scoring_runs_total"])
	}
	if values["tfidf_cache_hits_total"] != 2 {
		t.Errorf("cache hits = %v", values["tfidf_cache_hits_total"])
	}
	if values["tfidf_corpus_documents"] != 3 {
		t.Errorf("corpus documents = %v", values["tfidf_corpus_documents"])
	}
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	New(reg)
}
