package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"cell-arena/internal/game"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// DefaultViewRadius is used by /api/view when no radius is given.
	DefaultViewRadius = 800.0
	// MaxViewRadius caps /api/view queries.
	MaxViewRadius = 5000.0
	// DefaultLeaderboardSize is the /api/leaderboard default limit.
	DefaultLeaderboardSize = 10
	// MaxLeaderboardSize caps ?limit=.
	MaxLeaderboardSize = 100

	contentTypeMsgpack = "application/msgpack"
)

// Handler methods for routerHandlers

func (h *routerHandlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap.Config.WorldWidth == 0 {
		writeError(w, "World not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap.Config)
}

// handleGetState returns every public table. Clients that send
// Accept: application/msgpack or ?codec=msgpack get the binary encoding.
func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if wantsMsgpack(r) {
		writeMsgpack(w, snap)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()

	var totalMass float64
	for _, p := range snap.Players {
		totalMass += p.Mass
	}
	for _, c := range snap.Cells {
		totalMass += c.Mass
	}
	for _, m := range snap.Ejected {
		totalMass += m.Mass
	}

	clients := 0
	if h.clients != nil {
		clients = h.clients.ClientCount()
	}

	writeJSON(w, map[string]interface{}{
		"version":     snap.Version,
		"playerCount": len(snap.Players),
		"cellCount":   len(snap.Cells),
		"foodCount":   len(snap.Food),
		"ejectedMass": len(snap.Ejected),
		"totalMass":   totalMass,
		"connections": clients,
		"journal":     h.engine.GetEventLogStats(),
	})
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := DefaultLeaderboardSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}

	writeJSON(w, h.engine.Snapshot().Leaderboard(limit))
}

// handleGetView answers a viewport query: players and cells in full,
// pellets within radius of (x, y).
func (h *routerHandlers) handleGetView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	x, err := parseCoord(q.Get("x"))
	if err != nil {
		writeError(w, "Invalid x", http.StatusBadRequest)
		return
	}
	y, err := parseCoord(q.Get("y"))
	if err != nil {
		writeError(w, "Invalid y", http.StatusBadRequest)
		return
	}

	radius := DefaultViewRadius
	if v := q.Get("radius"); v != "" {
		radius, err = parseCoord(v)
		if err != nil || radius <= 0 {
			writeError(w, "Invalid radius", http.StatusBadRequest)
			return
		}
	}
	radius = math.Min(radius, MaxViewRadius)

	view := game.NewViewIndex(h.engine.Snapshot()).Query(x, y, radius)
	if wantsMsgpack(r) {
		writeMsgpack(w, view)
		return
	}
	writeJSON(w, view)
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// Helper functions (package-level for reuse)

func parseCoord(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func wantsMsgpack(r *http.Request) bool {
	if r.URL.Query().Get("codec") == "msgpack" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeMsgpack(w http.ResponseWriter, data interface{}) {
	body, err := msgpack.Marshal(data)
	if err != nil {
		writeError(w, "Encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.Write(body)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
