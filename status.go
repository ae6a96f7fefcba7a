package main

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/geo-services/dsmwms/utils"
)

type statusResponse struct {
	Status        string  `json:"status"`
	Service       string  `json:"service"`
	Version       string  `json:"version"`
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	CPUCount      int     `json:"cpu_count"`
}

// statusHandler reports service liveness on /api/status. The handler
// never touches the raster: once the startup barrier has passed the
// service is up by definition.
func (s *wmsService) statusHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	resp := &statusResponse{
		Status:        "ok",
		Service:       s.conf.ServiceConfig.Title,
		Version:       s.conf.ServiceConfig.Version,
		Timestamp:     now.Format(utils.ISOFormat),
		UptimeSeconds: now.Sub(s.startTime).Seconds(),
		CPUCount:      runtime.NumCPU(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		Error.Printf("error in writing status: %v\n", err)
	}
}
