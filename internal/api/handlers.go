package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ostrand/lansweep/internal/errors"
	"github.com/ostrand/lansweep/internal/netdetect"
	"github.com/ostrand/lansweep/internal/ports"
	"github.com/ostrand/lansweep/internal/scan"
)

// ScanRequest is the POST /api/v1/scan payload. Every field is
// optional; omitted fields fall back to the server configuration.
type ScanRequest struct {
	// Targets are plain IPv4 addresses or CIDR blocks. Empty means
	// autodetect the local /24 networks.
	Targets []string `json:"targets" validate:"omitempty,dive,min=1"`

	// Ports is an inline spec: comma-separated ports and a-b ranges.
	Ports string `json:"ports" validate:"omitempty,max=4096"`

	// ExcludePorts are removed from the selection.
	ExcludePorts []int `json:"exclude_ports" validate:"omitempty,dive,min=1,max=65535"`

	Concurrency int  `json:"concurrency" validate:"omitempty,min=1,max=5000"`
	TimeoutMS   int  `json:"timeout_ms" validate:"omitempty,min=1,max=60000"`
	Quick       bool `json:"quick"`
	ProbeRedis  bool `json:"probe_redis"`
}

// ScanResponse acknowledges an accepted scan.
type ScanResponse struct {
	ScanID  string `json:"scan_id"`
	State   string `json:"state"`
	Total   int64  `json:"total"`
	Message string `json:"message"`
}

func (s *Server) startScanHandler(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	cfg, err := s.buildScanConfig(&req)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	scanID, err := s.engine.Start(cfg)
	if err != nil {
		status := http.StatusBadRequest
		if errors.IsCode(err, errors.CodeAlreadyRunning) {
			status = http.StatusConflict
		}
		s.writeError(w, r, status, err)
		return
	}

	snap := s.engine.Status()
	s.WriteJSON(w, r, http.StatusAccepted, ScanResponse{
		ScanID:  scanID.String(),
		State:   snap.State,
		Total:   snap.Total,
		Message: "scan started",
	})
}

// buildScanConfig resolves a request against the server configuration
// into a concrete engine configuration.
func (s *Server) buildScanConfig(req *ScanRequest) (scan.Config, error) {
	scanning := s.config.Scanning

	targetSpecs := req.Targets
	if len(targetSpecs) == 0 {
		targetSpecs = scanning.Targets
	}

	var targets []net.IP
	if len(targetSpecs) == 0 {
		nets, err := netdetect.LocalNetworks()
		if err != nil {
			return scan.Config{}, fmt.Errorf("local network detection failed: %w", err)
		}
		for _, n := range nets {
			targets = append(targets, netdetect.ExpandHosts(n)...)
		}
	} else {
		var err error
		targets, err = netdetect.ExpandTargets(targetSpecs)
		if err != nil {
			return scan.Config{}, err
		}
	}

	quick := req.Quick || scanning.Quick

	var portList []int
	switch {
	case req.Ports != "":
		var err error
		portList, err = ports.ParseSpec(req.Ports)
		if err != nil {
			return scan.Config{}, err
		}
	case scanning.Ports != "":
		var err error
		portList, err = ports.ParseSpec(scanning.Ports)
		if err != nil {
			return scan.Config{}, err
		}
	default:
		portList = ports.LoadFileOrDefault(scanning.PortsFile, quick)
	}

	exclude := req.ExcludePorts
	if len(exclude) == 0 {
		exclude = scanning.ExcludePorts
	}

	concurrency := req.Concurrency
	if concurrency == 0 {
		concurrency = scanning.Concurrency
	}

	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	if timeout == 0 {
		timeout = scanning.Timeout
	}

	return scan.Config{
		Targets:      targets,
		Ports:        portList,
		ExcludePorts: exclude,
		Concurrency:  concurrency,
		Timeout:      timeout,
		Quick:        quick,
		ProbeRedis:   req.ProbeRedis || scanning.ProbeRedis,
	}, nil
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	s.WriteJSON(w, r, http.StatusOK, s.engine.Status())
}

func (s *Server) resultsHandler(w http.ResponseWriter, r *http.Request) {
	s.WriteJSON(w, r, http.StatusOK, s.engine.Results())
}

func (s *Server) cancelHandler(w http.ResponseWriter, r *http.Request) {
	s.engine.Cancel()
	s.WriteJSON(w, r, http.StatusOK, map[string]string{
		"state": s.engine.Status().State,
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.WriteJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"uptime":     time.Since(s.startTime).String(),
		"scan_state": s.engine.Status().State,
		"timestamp":  time.Now().UTC(),
	})
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	s.WriteJSON(w, r, http.StatusOK, map[string]string{
		"version": s.version,
		"name":    "lansweep",
	})
}
