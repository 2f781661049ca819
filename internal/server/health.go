package server

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessMetrics сведения о процессе для /healthz
type ProcessMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// NewProcessMetrics создает новый экземпляр метрик
func NewProcessMetrics() *ProcessMetrics {
	pm := &ProcessMetrics{StartTime: time.Now()}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		pm.proc = p
	}
	return pm
}

// Uptime возвращает время работы сервера в читаемом виде
func (pm *ProcessMetrics) Uptime() string {
	uptime := time.Since(pm.StartTime)

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// CPUPercent использование CPU процессом; при ошибке берётся системное
func (pm *ProcessMetrics) CPUPercent() (float64, error) {
	if pm.proc != nil {
		if v, err := pm.proc.CPUPercent(); err == nil {
			return v, nil
		}
	}
	// без интервала: сравнение с предыдущим вызовом, запрос не ждёт
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return 0, err
	}
	return percents[0], nil
}

// RSSMegabytes резидентная память процесса в MB
func (pm *ProcessMetrics) RSSMegabytes() (float64, error) {
	if pm.proc == nil {
		return 0, fmt.Errorf("process handle unavailable")
	}
	info, err := pm.proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / 1024 / 1024, nil
}

// Snapshot собирает сведения для ответа /healthz
func (pm *ProcessMetrics) Snapshot() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	out := map[string]interface{}{
		"uptime":         pm.Uptime(),
		"uptime_seconds": int64(time.Since(pm.StartTime).Seconds()),
		"heap_alloc_mb":  float64(m.HeapAlloc) / 1024 / 1024,
		"num_gc":         m.NumGC,
		"goroutines":     runtime.NumGoroutine(),
	}
	if v, err := pm.CPUPercent(); err == nil {
		out["cpu_percent"] = v
	}
	if v, err := pm.RSSMegabytes(); err == nil {
		out["rss_mb"] = v
	}
	return out
}
