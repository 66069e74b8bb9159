package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// TemplateChecker reports whether a template can be read
type TemplateChecker interface {
	Exists(name string) error
}

type HealthChecker struct {
	templates TemplateChecker
	index     string
	mode      string
	started   time.Time
}

type HealthStatus struct {
	Status     string         `json:"status"`
	Mode       string         `json:"mode"`
	Template   TemplateHealth `json:"template"`
	Uptime     string         `json:"uptime"`
	Goroutines int            `json:"goroutines"`
	Memory     MemoryStats    `json:"memory"`
}

type MemoryStats struct {
	AllocMB      float64 `json:"alloc_mb"`
	TotalAllocMB float64 `json:"total_alloc_mb"`
	SysMB        float64 `json:"sys_mb"`
	NumGC        uint32  `json:"num_gc"`
}

type TemplateHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func NewHealthChecker(templates TemplateChecker, index, mode string) *HealthChecker {
	return &HealthChecker{
		templates: templates,
		index:     index,
		mode:      mode,
		started:   time.Now(),
	}
}

func (h *HealthChecker) CheckBasic() HealthStatus {
	tmplHealth := h.checkTemplate()

	status := "healthy"
	if tmplHealth.Status != "healthy" {
		status = "unhealthy"
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return HealthStatus{
		Status:     status,
		Mode:       h.mode,
		Template:   tmplHealth,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryStats{
			AllocMB:      float64(memStats.Alloc) / 1024 / 1024,
			TotalAllocMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			SysMB:        float64(memStats.Sys) / 1024 / 1024,
			NumGC:        memStats.NumGC,
		},
	}
}

func (h *HealthChecker) checkTemplate() TemplateHealth {
	if err := h.templates.Exists(h.index); err != nil {
		return TemplateHealth{
			Name:   h.index,
			Status: "unhealthy",
			Error:  err.Error(),
		}
	}
	return TemplateHealth{Name: h.index, Status: "healthy"}
}

// ServeHTTP answers 200 when healthy and 503 otherwise
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.CheckBasic()

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
