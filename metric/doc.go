// Package metric exports scalareval engine metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc := metric.NewPrometheusCollector(reg, "scalareval")
//	eng, _ := scalareval.New(catalog, scalareval.WithMetricsCollector(mc))
package metric
