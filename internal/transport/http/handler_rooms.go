package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"partyseq/internal/model"
	"partyseq/internal/registry"
)

type RoomHandlers struct {
	reg *registry.Registry
}

func NewRoomHandlers(reg *registry.Registry) *RoomHandlers {
	return &RoomHandlers{reg: reg}
}

type createRoomRequest struct {
	DisplayName string           `json:"displayName"`
	AvatarID    string           `json:"avatarId"`
	GameMode    model.GameMode   `json:"gameMode,omitempty"`
	Difficulty  model.Difficulty `json:"difficulty,omitempty"`
}

type joinRoomRequest struct {
	DisplayName string `json:"displayName"`
	AvatarID    string `json:"avatarId"`
}

type roomResponse struct {
	Room     *model.Room `json:"room"`
	PlayerID string      `json:"playerId,omitempty"`
}

// Create makes a room with the caller as host. The returned playerId is
// the credential for the websocket bind; there is no other auth.
func (h *RoomHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.DisplayName) == "" {
			WriteHTTPError(w, http.StatusBadRequest, "displayName is required")
			return
		}
		if req.GameMode != "" && req.GameMode != model.ModeSimon && req.GameMode != model.ModeColorRace {
			WriteHTTPError(w, http.StatusBadRequest, "unknown gameMode")
			return
		}

		room, playerID := h.reg.CreateRoom(registry.PlayerInfo{
			DisplayName: strings.TrimSpace(req.DisplayName),
			AvatarID:    req.AvatarID,
		}, req.GameMode, req.Difficulty)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(roomResponse{Room: room, PlayerID: playerID})
	}
}

func (h *RoomHandlers) Join() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.DisplayName) == "" {
			WriteHTTPError(w, http.StatusBadRequest, "displayName is required")
			return
		}
		code := strings.ToUpper(chi.URLParam(r, "code"))

		room, playerID, err := h.reg.JoinRoom(code, registry.PlayerInfo{
			DisplayName: strings.TrimSpace(req.DisplayName),
			AvatarID:    req.AvatarID,
		})
		if err != nil {
			switch {
			case errors.Is(err, registry.ErrRoomNotFound):
				WriteHTTPError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, registry.ErrRoomNotJoinable), errors.Is(err, registry.ErrRoomFull):
				WriteHTTPError(w, http.StatusConflict, err.Error())
			default:
				WriteHTTPError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(roomResponse{Room: room, PlayerID: playerID})
	}
}

func (h *RoomHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(chi.URLParam(r, "code"))
		room, ok := h.reg.Get(code)
		if !ok {
			WriteHTTPError(w, http.StatusNotFound, registry.ErrRoomNotFound.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(roomResponse{Room: room})
	}
}

func (h *RoomHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "rooms": h.reg.Count()})
	}
}
