package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const managementIndex = `fib-server management API

GET /status   current server state as JSON
GET /metrics  Prometheus metrics
`

// handleStatus handles the /status endpoint request
func handleStatus(responseWriter http.ResponseWriter, request *http.Request, srv *server) {
	// LastRequest describes the most recently finished connection
	type LastRequest struct {
		N          int64     `json:"n"`
		Result     string    `json:"result"`
		DurationMs float64   `json:"duration_ms"`
		At         time.Time `json:"at"`
	}

	// StatusResponse represents the complete status response
	type StatusResponse struct {
		ListenAddress     string         `json:"listen_address"`
		Workers           int            `json:"workers"`
		ActiveConnections int            `json:"active_connections"`
		RequestsServed    int            `json:"requests_served"`
		RequestsFailed    map[string]int `json:"requests_failed"`
		LastRequest       *LastRequest   `json:"last_request"`
	}

	if request.Method != http.MethodGet {
		http.Error(responseWriter, "Only GET requests allowed", http.StatusMethodNotAllowed)
		return
	}

	responseWriter.Header().Set("Content-Type", "application/json; charset=utf-8")

	snapshot := srv.metrics.snapshot()
	response := StatusResponse{
		ListenAddress:     srv.acceptor.Addr().String(),
		Workers:           srv.config.Workers,
		ActiveConnections: snapshot.ActiveConnections,
		RequestsServed:    snapshot.RequestsServed,
		RequestsFailed:    snapshot.RequestsFailed,
	}
	if snapshot.LastRequest != nil {
		response.LastRequest = &LastRequest{
			N:          snapshot.LastRequest.N,
			Result:     snapshot.LastRequest.Result,
			DurationMs: float64(snapshot.LastRequest.Duration.Microseconds()) / 1000,
			At:         snapshot.LastRequest.At,
		}
	}

	if err := json.NewEncoder(responseWriter).Encode(response); err != nil {
		http.Error(responseWriter, "{error: \"Failed to produce JSON response\"}", http.StatusInternalServerError)
		log.Printf("[Management API] Failed to produce /status JSON response: %s\n", err.Error())
	}
}

func newManagementHandler(srv *server) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/status", func(responseWriter http.ResponseWriter, request *http.Request) {
		printRequestUrlManagementApi(request, srv.config.LogLevel)
		handleStatus(responseWriter, request, srv)
	})

	metricsHandler := promhttp.HandlerFor(srv.metrics.registry, promhttp.HandlerOpts{})
	mux.HandleFunc("/metrics", func(responseWriter http.ResponseWriter, request *http.Request) {
		printRequestUrlManagementApi(request, srv.config.LogLevel)
		metricsHandler.ServeHTTP(responseWriter, request)
	})

	mux.HandleFunc("/", func(responseWriter http.ResponseWriter, request *http.Request) {
		printRequestUrlManagementApi(request, srv.config.LogLevel)
		if request.URL.Path != "/" {
			http.NotFound(responseWriter, request)
			return
		}
		responseWriter.Header().Set("Content-Type", "text/plain; charset=utf-8")
		responseWriter.WriteHeader(http.StatusOK)
		if _, err := responseWriter.Write([]byte(managementIndex)); err != nil {
			log.Printf("[Management API] Failed to send index page: %s\n", err.Error())
		}
	})
	return mux
}

// startManagementApi starts the management API on ListenHost and the
// management port.
func startManagementApi(cfg Config, srv *server) {
	httpServer := &http.Server{
		Addr:              cfg.managementListenAddress(),
		Handler:           newManagementHandler(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("[Management API] Listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("[Management API] Could not start management API: %s\n", err.Error())
	}
}

func printRequestUrlManagementApi(request *http.Request, logLevel string) {
	if logLevel == LogLevelDebug {
		log.Printf("[Management API] %s %s", request.Method, request.URL)
	}
}
