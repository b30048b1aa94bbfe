package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/regen2moon/tomibotchi/internal/config"
	"github.com/regen2moon/tomibotchi/internal/dispatch"
)

// setupServer exposes the dispatcher as the command API the chat front end
// calls. Each endpoint returns the rendered reply text.
func setupServer(d *dispatch.Dispatcher, cfg *config.Config) *http.Server {
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

	registerCommands(mux, d, cfg)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

type commandReply struct {
	Message string `json:"message"`
}

func registerCommands(mux *http.ServeMux, d *dispatch.Dispatcher, cfg *config.Config) {
	mux.HandleFunc("/commands/start_game", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			GuildID         int64 `json:"guild_id"`
			ButtonChannelID int64 `json:"button_channel_id"`
			ChatChannelID   int64 `json:"chat_channel_id"`
		}
		if !decode(w, r, &req) {
			return
		}
		msg, err := d.OnStartGame(r.Context(), req.GuildID, req.ButtonChannelID, req.ChatChannelID,
			cfg.TimerDuration(), cfg.CooldownDuration())
		respond(w, msg, err)
	})

	mux.HandleFunc("/commands/click", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			GameID   int64  `json:"game_id"`
			UserID   int64  `json:"user_id"`
			UserName string `json:"user_name"`
		}
		if !decode(w, r, &req) {
			return
		}
		msg, err := d.OnButtonClick(r.Context(), req.GameID, req.UserID, req.UserName)
		respond(w, msg, err)
	})

	mux.HandleFunc("/commands/game_status", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			GameID int64 `json:"game_id"`
		}
		if !decode(w, r, &req) {
			return
		}
		msg, err := d.OnGameStatus(r.Context(), req.GameID, cfg.TimerDuration())
		respond(w, msg, err)
	})

	mux.HandleFunc("/commands/create_pet", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID  int64  `json:"user_id"`
			GuildID int64  `json:"guild_id"`
			Name    string `json:"name"`
			Species string `json:"species"`
		}
		if !decode(w, r, &req) {
			return
		}
		msg, err := d.OnCreatePet(r.Context(), req.UserID, req.GuildID, req.Name, req.Species)
		respond(w, msg, err)
	})

	mux.HandleFunc("/commands/pet_interact", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID      int64  `json:"user_id"`
			GuildID     int64  `json:"guild_id"`
			Interaction string `json:"interaction"`
		}
		if !decode(w, r, &req) {
			return
		}
		msg, err := d.OnPetInteraction(r.Context(), req.UserID, req.GuildID, req.Interaction)
		respond(w, msg, err)
	})

	mux.HandleFunc("/commands/pet_status", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID  int64 `json:"user_id"`
			GuildID int64 `json:"guild_id"`
		}
		if !decode(w, r, &req) {
			return
		}
		msg, err := d.OnPetStatus(r.Context(), req.UserID, req.GuildID)
		respond(w, msg, err)
	})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func respond(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		log.Error().Err(err).Msg("command failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(commandReply{Message: msg})
}
