//
//
package api

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/lng-monitor/relay/internal/history"
)

// Version is reported by the root and health endpoints.
const Version = "1.0.0"

// RegisterRoutes registers every endpoint on r.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.Use(corsMiddleware, s.instrument)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/realtime/equipment-list", s.handleRealtimeList).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/history/equipment-list", s.handleHistoryList).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/history/data", s.handleHistoryData).Methods(http.MethodGet, http.MethodOptions)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	// Subrouters keep their own fallbacks
	for _, router := range []*mux.Router{r, api} {
		router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
		router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
	}
}

// corsMiddleware allows every origin and answers preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument reports status and latency per route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		// The socket lifetime is not a request latency
		if route == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.ObserveRequest(route, rec.status, time.Since(start))
	})
}

// statusRecorder captures the response status.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, http.StatusOK, map[string]interface{}{
		"message": "LNG实验室监控系统 - 遥测中继服务",
		"version": Version,
		"status":  "running",
		"endpoints": map[string]string{
			"realtime":  "/api/realtime/*",
			"history":   "/api/history/*",
			"websocket": "/ws",
			"health":    "/health",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Calculate uptime
	uptime := 0.0
	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Seconds()
	}

	status := "healthy"
	httpStatus := http.StatusOK
	consumers := 0
	if s.hub == nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		consumers = s.hub.Count()
	}

	writeResponse(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": formatTimestamp(s.now()),
		"uptimeSec": uptime,
		"version":   Version,
		"consumers": consumers,
		"history":   s.history != nil,
	})
}

// handleRealtimeList handles GET /api/realtime/equipment-list
func (s *Server) handleRealtimeList(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		WriteError(w, http.StatusServiceUnavailable, MessageUnavailable)
		return
	}

	WriteSuccess(w, s.hub.Current())
}

// equipmentDescriptor is one entry of the history equipment list.
type equipmentDescriptor struct {
	ID         int                   `json:"id"`
	Name       string                `json:"name"`
	Type       string                `json:"type"`
	Parameters []parameterDescriptor `json:"parameters"`
}

type parameterDescriptor struct {
	Label string `json:"label"`
	Unit  string `json:"unit"`
	Key   string `json:"key"`
}

// handleHistoryList handles GET /api/history/equipment-list
func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	list := make([]equipmentDescriptor, 0, s.catalog.Len())
	if s.catalog != nil {
		for _, inst := range s.catalog.Instruments {
			desc := equipmentDescriptor{
				ID:         inst.ID,
				Name:       inst.Name,
				Type:       "multi-param",
				Parameters: make([]parameterDescriptor, 0, len(inst.Parameters)),
			}
			for _, p := range inst.Parameters {
				desc.Parameters = append(desc.Parameters, parameterDescriptor{Label: p.Label, Unit: p.Unit, Key: p.Key})
			}
			list = append(list, desc)
		}
	}

	WriteSuccess(w, list)
}

// historyData is the payload of GET /api/history/data.
type historyData struct {
	EquipmentID   int              `json:"equipmentId"`
	EquipmentName string           `json:"equipmentName"`
	EquipmentType string           `json:"equipmentType"`
	TimeRange     timeRange        `json:"timeRange"`
	TimeData      []string         `json:"timeData"`
	Series        []history.Series `json:"series"`
}

type timeRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// handleHistoryData handles GET /api/history/data?equipmentId=&limit=
func (s *Server) handleHistoryData(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	rawID := query.Get("equipmentId")
	if rawID == "" {
		WriteAPIError(w, ErrMissingEquipmentID)
		return
	}

	id, err := strconv.Atoi(rawID)
	if err != nil {
		WriteAPIError(w, ErrUnknownEquipment)
		return
	}
	inst, ok := s.catalog.Find(id)
	if !ok {
		WriteAPIError(w, ErrUnknownEquipment)
		return
	}

	limit := s.historyLimit
	if rawLimit := query.Get("limit"); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 {
			WriteAPIError(w, ErrInvalidLimit)
			return
		}
		if limit <= 0 || n < limit {
			limit = n
		}
	}

	if s.history == nil {
		WriteAPIError(w, ErrHistoryDisabled)
		return
	}

	result, err := s.history.Series(r.Context(), inst.ID, limit)
	if err != nil {
		WriteAPIError(w, err)
		return
	}

	data := historyData{
		EquipmentID:   inst.ID,
		EquipmentName: inst.Name,
		EquipmentType: inst.Category,
		TimeData:      make([]string, 0, len(result.Times)),
		Series:        result.Series,
	}
	for _, t := range result.Times {
		data.TimeData = append(data.TimeData, formatTimestamp(t))
	}
	if n := len(data.TimeData); n > 0 {
		data.TimeRange = timeRange{Start: data.TimeData[0], End: data.TimeData[n-1]}
	}

	WriteSuccess(w, data)
}

// handleNotFound writes the 404 envelope for unknown routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	log.Printf("api: 404 %s %s", r.Method, r.URL.RequestURI())
	w.Header().Set("Access-Control-Allow-Origin", "*")
	WriteError(w, http.StatusNotFound, MessageRouteNotFound)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, MessageMethodNotAllow)
}
