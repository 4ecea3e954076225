//go:build !linux

package probe

// readMetrics reports the metrics probe as unavailable on platforms without
// a /proc interface. The performance monitor degrades to its minimal record.
func readMetrics(string) (Metrics, bool) {
	return Metrics{}, false
}
