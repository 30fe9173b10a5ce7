package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedReading(v float64, err error) func() (float64, error) {
	return func() (float64, error) { return v, err }
}

func TestHostCollector(t *testing.T) {
	collector := NewHostCollector("/", zerolog.Nop())
	collector.cpuPercent = fixedReading(12.5, nil)
	collector.memoryPercent = fixedReading(40, nil)
	collector.diskPercent = fixedReading(73.25, nil)

	expected := `
# HELP thermo_host_cpu_percent Percentage of CPU utilization across all cores.
# TYPE thermo_host_cpu_percent gauge
thermo_host_cpu_percent 12.5
# HELP thermo_host_disk_used_percent Percentage of disk space used.
# TYPE thermo_host_disk_used_percent gauge
thermo_host_disk_used_percent{path="/"} 73.25
# HELP thermo_host_memory_used_percent Percentage of virtual memory in use.
# TYPE thermo_host_memory_used_percent gauge
thermo_host_memory_used_percent 40
`
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected)))
}

func TestHostCollectorOmitsFailedReadings(t *testing.T) {
	collector := NewHostCollector("/", zerolog.Nop())
	collector.cpuPercent = fixedReading(0, errors.New("no /proc/stat"))
	collector.memoryPercent = fixedReading(40, nil)
	collector.diskPercent = fixedReading(0, errors.New("no such path"))

	assert.Equal(t, 1, testutil.CollectAndCount(collector))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(collector))
}
