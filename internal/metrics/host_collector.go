package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"
)

// HostCollector exposes resource usage of the node running the agent. Values
// are read from gopsutil on every scrape.
type HostCollector struct {
	logger   zerolog.Logger
	diskPath string

	cpuDesc    *prometheus.Desc
	memoryDesc *prometheus.Desc
	diskDesc   *prometheus.Desc

	cpuPercent    func() (float64, error)
	memoryPercent func() (float64, error)
	diskPercent   func() (float64, error)
}

// NewHostCollector creates a HostCollector reporting disk usage of diskPath.
func NewHostCollector(diskPath string, logger zerolog.Logger) *HostCollector {
	return &HostCollector{
		logger:   logger,
		diskPath: diskPath,
		cpuDesc: prometheus.NewDesc("thermo_host_cpu_percent",
			"Percentage of CPU utilization across all cores.", nil, nil),
		memoryDesc: prometheus.NewDesc("thermo_host_memory_used_percent",
			"Percentage of virtual memory in use.", nil, nil),
		diskDesc: prometheus.NewDesc("thermo_host_disk_used_percent",
			"Percentage of disk space used.", []string{"path"}, nil),
		cpuPercent: func() (float64, error) {
			percentages, err := cpu.Percent(0, false)
			if err != nil || len(percentages) == 0 {
				return 0, err
			}
			return percentages[0], nil
		},
		memoryPercent: func() (float64, error) {
			stat, err := mem.VirtualMemory()
			if err != nil {
				return 0, err
			}
			return stat.UsedPercent, nil
		},
		diskPercent: func() (float64, error) {
			stat, err := disk.Usage(diskPath)
			if err != nil {
				return 0, err
			}
			return stat.UsedPercent, nil
		},
	}
}

// Describe implements prometheus.Collector.
func (h *HostCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.cpuDesc
	ch <- h.memoryDesc
	ch <- h.diskDesc
}

// Collect implements prometheus.Collector. A failed reading is logged and
// its metric omitted from the scrape.
func (h *HostCollector) Collect(ch chan<- prometheus.Metric) {
	if v, err := h.cpuPercent(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to get CPU usage")
	} else {
		ch <- prometheus.MustNewConstMetric(h.cpuDesc, prometheus.GaugeValue, v)
	}

	if v, err := h.memoryPercent(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to get memory usage")
	} else {
		ch <- prometheus.MustNewConstMetric(h.memoryDesc, prometheus.GaugeValue, v)
	}

	if v, err := h.diskPercent(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to get disk usage")
	} else {
		ch <- prometheus.MustNewConstMetric(h.diskDesc, prometheus.GaugeValue, v, h.diskPath)
	}
}
