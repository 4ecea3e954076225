package probe

import "time"

// Metrics is one sample of host resource utilization. When the platform
// cannot provide a sample, Available is false and the performance monitor
// degrades to a minimal record.
type Metrics struct {
	Timestamp   time.Time `json:"timestamp"`
	CPUPercent  float64   `json:"cpu_percent"`
	MemPercent  float64   `json:"mem_percent"`
	DiskPercent float64   `json:"disk_percent"`
	Load1       float64   `json:"load_1m"`
	Processes   int       `json:"processes"`
}

// ReadMetrics samples host metrics for the filesystem containing path.
// The bool reports whether the metrics probe is available on this platform.
func ReadMetrics(path string) (Metrics, bool) {
	return readMetrics(path)
}
