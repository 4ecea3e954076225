//go:build linux

package probe

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// readMetrics samples /proc and the filesystem stats for path. Any read
// failure reports the probe as unavailable; partial samples are not
// fabricated.
func readMetrics(path string) (Metrics, bool) {
	m := Metrics{Timestamp: time.Now().UTC()}

	load1, ok := readLoadAvg()
	if !ok {
		return Metrics{}, false
	}
	m.Load1 = load1
	// One-shot approximation: normalized 1-minute load. Good enough for
	// tiered penalties in a batch job; a sampling window would need two
	// /proc/stat reads spaced apart.
	cpus := float64(runtime.NumCPU())
	if cpus < 1 {
		cpus = 1
	}
	m.CPUPercent = clampPercent(load1 / cpus * 100)

	memPct, ok := readMemPercent()
	if !ok {
		return Metrics{}, false
	}
	m.MemPercent = memPct

	var fs syscall.Statfs_t
	if err := syscall.Statfs(path, &fs); err != nil || fs.Blocks == 0 {
		return Metrics{}, false
	}
	used := float64(fs.Blocks-fs.Bfree) / float64(fs.Blocks) * 100
	m.DiskPercent = clampPercent(used)

	m.Processes = countProcesses()
	return m, true
}

func readLoadAvg() (float64, bool) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, false
	}
	load, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return load, true
}

func readMemPercent() (float64, bool) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, false
	}
	var total, available float64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = value
		case "MemAvailable:":
			available = value
		}
	}
	if total <= 0 {
		return 0, false
	}
	return clampPercent((total - available) / total * 100), true
}

func countProcesses() int {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err == nil {
			count++
		}
	}
	return count
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
