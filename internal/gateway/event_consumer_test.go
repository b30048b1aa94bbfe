package gateway

import (
	"encoding/json"
	"testing"
)

func TestRoomForEvent(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		payload string
		want    string
		wantErr bool
	}{
		{
			name:    "game tick routes to its game room",
			subject: "game.events.tick",
			payload: `{"game_id": 42, "time_remaining_sec": 120}`,
			want:    "game.42",
		},
		{
			name:    "game ended routes to its game room",
			subject: "game.events.ended",
			payload: `{"game_id": 7}`,
			want:    "game.7",
		},
		{
			name:    "pet state change routes to the shared pets room",
			subject: "game.events.pet_state_changed",
			payload: `{"pet_id": 3, "name": "mochi"}`,
			want:    RoomPets,
		},
		{
			name:    "missing game id is an error",
			subject: "game.events.tick",
			payload: `{"time_remaining_sec": 120}`,
			wantErr: true,
		},
		{
			name:    "malformed payload is an error",
			subject: "game.events.tick",
			payload: `{`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := roomForEvent(tt.subject, json.RawMessage(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("roomForEvent(%q) expected error, got room %q", tt.subject, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("roomForEvent(%q) returned error: %v", tt.subject, err)
			}
			if got != tt.want {
				t.Fatalf("roomForEvent(%q) = %q, want %q", tt.subject, got, tt.want)
			}
		})
	}
}

func TestGameRoom(t *testing.T) {
	if got := GameRoom(42); got != "game.42" {
		t.Fatalf("GameRoom(42) = %q", got)
	}
	if got := GameRoom(0); got != "game.0" {
		t.Fatalf("GameRoom(0) = %q", got)
	}
}
