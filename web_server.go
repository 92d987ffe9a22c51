package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"gridpolicy/logx"
)

// WSHub manages WebSocket connections and broadcasts
type WSHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan WSMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{} // closed when run returns
	mutex      sync.RWMutex

	// last status, served on /status and to newly connected clients
	status atomic.Value // StatusData
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type string `json:"type"` // "progress", "best", "trajectory", "checkpoint", "status", etc.
	Data any    `json:"data"` // Payload data
	Time int64  `json:"time"` // Unix timestamp
}

//go:embed dashboard.html
var dashboardHTML []byte

var wsHub *WSHub
var webDashboardEnabled atomic.Bool

// WSMessageType constants
const (
	MsgTypeProgress   = "progress"
	MsgTypeBest       = "best"
	MsgTypeTrajectory = "trajectory"
	MsgTypeCheckpoint = "checkpoint"
	MsgTypeStatus     = "status"
	MsgTypeError      = "error"
	MsgTypeWarning    = "warning"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func newWSHub() *WSHub {
	hub := &WSHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
	hub.status.Store(StatusData{Status: "starting"})
	return hub
}

// newWebHandler routes the dashboard endpoints for hub.
func newWebHandler(hub *WSHub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(dashboardHTML)
	})
	mux.HandleFunc("/ws", hub.handleWebSocket)
	mux.HandleFunc("/status", hub.handleStatus)
	return corsMiddleware(mux)
}

// StartWebServer starts the HTTP/WebSocket server and stops it when ctx ends.
func StartWebServer(ctx context.Context, port int) error {
	wsHub = newWSHub()
	go wsHub.run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           newWebHandler(wsHub),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	webDashboardEnabled.Store(true)
	fmt.Printf("%s  %s  Dashboard running at %s\n",
		logx.TS(time.Now().UTC().Format("15:04:05Z")), logx.Channel("RUN "),
		logx.Highlight(fmt.Sprintf("http://localhost:%d", port)))

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// handleWebSocket handles WebSocket connections
func (hub *WSHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.LogFailure(fmt.Sprintf("websocket upgrade: %v", err))
		return
	}

	// Current status goes out before the hub starts writing to this conn
	if err := ws.WriteJSON(hub.statusMessage()); err != nil {
		ws.Close()
		return
	}

	select {
	case hub.register <- ws:
	case <-hub.done:
		ws.Close()
		return
	}
	defer func() {
		select {
		case hub.unregister <- ws:
		case <-hub.done:
		}
		ws.Close()
	}()

	// Read until the client goes away; clients only send heartbeats
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			break
		}
	}
}

func (hub *WSHub) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(hub.statusMessage())
}

func (hub *WSHub) statusMessage() WSMessage {
	return WSMessage{Type: MsgTypeStatus, Data: hub.status.Load(), Time: time.Now().Unix()}
}

// run processes messages in the hub until ctx is done
func (hub *WSHub) run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case <-ctx.Done():
			hub.mutex.Lock()
			for client := range hub.clients {
				client.Close()
				delete(hub.clients, client)
			}
			hub.mutex.Unlock()
			return

		case client := <-hub.register:
			hub.mutex.Lock()
			hub.clients[client] = true
			hub.mutex.Unlock()

		case client := <-hub.unregister:
			hub.mutex.Lock()
			delete(hub.clients, client)
			hub.mutex.Unlock()

		case message := <-hub.broadcast:
			if message.Type == MsgTypeStatus {
				if s, ok := message.Data.(StatusData); ok {
					hub.status.Store(s)
				}
			}
			hub.mutex.RLock()
			for client := range hub.clients {
				if err := client.WriteJSON(message); err != nil {
					// Client disconnected, will be cleaned up by unregister
					continue
				}
			}
			hub.mutex.RUnlock()
		}
	}
}

// publish queues a message without blocking the caller
func (hub *WSHub) publish(msgType string, data any) {
	msg := WSMessage{
		Type: msgType,
		Data: data,
		Time: time.Now().Unix(),
	}
	select {
	case hub.broadcast <- msg:
		// Message queued
	default:
		// Channel full, skip this message (backpressure protection)
	}
}

// Broadcast sends a message to all connected clients
func Broadcast(msgType string, data any) {
	if !webDashboardEnabled.Load() || wsHub == nil {
		return
	}
	wsHub.publish(msgType, data)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// FindAvailablePort finds an available port starting from startPort
func FindAvailablePort(startPort int) int {
	for port := startPort; port < startPort+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			ln.Close()
			return port
		}
	}
	return startPort // fallback
}

// Message structures for WebSocket payloads

// StatusData is the run's lifecycle state
type StatusData struct {
	Status string `json:"status"` // "starting", "running", "stopping", "done"
	RunID  string `json:"run_id,omitempty"`
	Mode   string `json:"mode,omitempty"`
	Msg    string `json:"msg,omitempty"`
}

// ProgressData mirrors a progress tick
type ProgressData struct {
	Completed     int     `json:"completed"`
	Total         int     `json:"total"`
	Rate          float64 `json:"rate"`
	TimeElapsed   string  `json:"time_elapsed"`
	ETA           string  `json:"eta"`
	BestScore     float64 `json:"best_score"`
	BestTier      int     `json:"best_tier"`
	Stagnation    int     `json:"stagnation"`
	Distinct      int     `json:"distinct"`
	DistinctRatio float64 `json:"distinct_ratio"`
	RecentMean    float64 `json:"recent_mean"`
	RecentStdDev  float64 `json:"recent_std_dev"`
}

// BestData describes a new best trajectory
type BestData struct {
	Iteration    int     `json:"iteration"`
	Score        float64 `json:"score"`
	Tier         int     `json:"tier"`
	NetEmissions float64 `json:"net_emissions"`
	TotalCost    float64 `json:"total_cost"`
	Opinion      float64 `json:"public_opinion"`
	Reliability  float64 `json:"power_reliability"`
	WorstRel     float64 `json:"worst_power_reliability"`
	Actions      int     `json:"actions"`
	Timestamp    string  `json:"timestamp"`
}

// TrajectoryData is a compact per-iteration record
type TrajectoryData struct {
	Iteration int     `json:"iteration"`
	Score     float64 `json:"score"`
	Actions   int     `json:"actions"`
	Replayed  bool    `json:"replayed"`
	Improved  bool    `json:"improved"`
}

// CheckpointData reports a checkpoint write
type CheckpointData struct {
	Iteration int    `json:"iteration"`
	Path      string `json:"path"`
	Error     string `json:"error,omitempty"`
}

func SendStatus(s StatusData) {
	Broadcast(MsgTypeStatus, s)
}

func SendError(msg string) {
	Broadcast(MsgTypeError, msg)
}

func SendWarning(msg string) {
	Broadcast(MsgTypeWarning, msg)
}
