package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// NewServer builds the gateway HTTP server: the WebSocket endpoint plus
// health and stats, wrapped in CORS and h2c.
func NewServer(port string, cm *ConnectionManager) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	mux.HandleFunc("/ws", handleWebSocket(cm))
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/stats", handleStats(cm))

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

// handleWebSocket subscribes the client to a room: ?game_id=N for one
// game's feed, ?topic=pets for pet state changes.
func handleWebSocket(cm *ConnectionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var room string
		switch {
		case r.URL.Query().Get("game_id") != "":
			gameID, err := strconv.ParseInt(r.URL.Query().Get("game_id"), 10, 64)
			if err != nil {
				http.Error(w, "invalid game_id", http.StatusBadRequest)
				return
			}
			room = GameRoom(gameID)
		case r.URL.Query().Get("topic") == RoomPets:
			room = RoomPets
		default:
			http.Error(w, "game_id or topic required", http.StatusBadRequest)
			return
		}

		if err := cm.UpgradeConnection(w, r, room); err != nil {
			log.Error().Err(err).Str("room", room).Msg("websocket upgrade failed")
		}
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleStats(cm *ConnectionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(cm.GetConnectionStats())
	}
}
