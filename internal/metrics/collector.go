// Package metrics exports fan state as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/muurk/ecofan/internal/fan"
)

// Source supplies the snapshots to export. *platform.Platform implements it.
type Source interface {
	Snapshots() []fan.Snapshot
}

// Collector reads snapshots on every scrape, so values are never stale
// relative to the in-memory mirror.
type Collector struct {
	source Source

	on        *prometheus.Desc
	level     *prometheus.Desc
	available *prometheus.Desc
	info      *prometheus.Desc
	updated   *prometheus.Desc
}

// NewCollector creates a collector over source.
func NewCollector(source Source) *Collector {
	labels := []string{"id", "name"}
	return &Collector{
		source: source,
		on: prometheus.NewDesc(
			"ecofan_fan_on",
			"1 if the fan is on",
			labels, nil,
		),
		level: prometheus.NewDesc(
			"ecofan_fan_speed_level",
			"Selected speed preset (1=low, 2=medium, 3=high)",
			labels, nil,
		),
		available: prometheus.NewDesc(
			"ecofan_fan_available",
			"1 if the last exchange with the fan succeeded",
			labels, nil,
		),
		info: prometheus.NewDesc(
			"ecofan_fan_info",
			"Fan device info",
			[]string{"id", "name", "host", "manufacturer", "model", "sw_version"}, nil,
		),
		updated: prometheus.NewDesc(
			"ecofan_fan_last_update_timestamp_seconds",
			"Last time the fan state changed (epoch seconds)",
			labels, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.on
	ch <- c.level
	ch <- c.available
	ch <- c.info
	ch <- c.updated
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.source.Snapshots() {
		ch <- prometheus.MustNewConstMetric(c.on, prometheus.GaugeValue, boolToFloat(s.On), s.ID, s.Name)
		ch <- prometheus.MustNewConstMetric(c.level, prometheus.GaugeValue, float64(s.PresetMode.Level()), s.ID, s.Name)
		ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, boolToFloat(s.Available), s.ID, s.Name)
		ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1,
			s.ID, s.Name, s.Host, fan.Manufacturer, fan.Model, fan.SoftwareVersion)
		if !s.UpdatedAt.IsZero() {
			ch <- prometheus.MustNewConstMetric(c.updated, prometheus.GaugeValue, float64(s.UpdatedAt.Unix()), s.ID, s.Name)
		}
	}
}

// NewRegistry returns a registry holding the fan collector plus the Go and
// process collectors.
func NewRegistry(source Source) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(source))
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
