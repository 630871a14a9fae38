package main

import (
	"bytes"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// sim-client plays one seat of a sequence game over the real websocket
// protocol: create or join a room via the REST API, bind the socket,
// echo back each round's sequence (flubbing it sometimes), and log
// everything the server pushes. Useful for soaking a dev server.

type roomResponse struct {
	Room struct {
		Code string `json:"code"`
	} `json:"room"`
	PlayerID string `json:"playerId"`
}

type serverMsg struct {
	Type     string   `json:"type"`
	Count    int      `json:"count"`
	Round    int      `json:"round"`
	Sequence []string `json:"sequence"`
	WinnerID string   `json:"winnerId"`
	Message  string   `json:"message"`
}

type intent struct {
	Type     string   `json:"type"`
	Code     string   `json:"code,omitempty"`
	PlayerID string   `json:"playerId,omitempty"`
	Sequence []string `json:"sequence,omitempty"`
}

func main() {
	baseURL := getenv("BASE_URL", "http://localhost:8080")
	wsURL := getenv("WS_URL", "ws://localhost:8080/ws")
	name := getenv("PLAYER_NAME", "sim")
	code := os.Getenv("ROOM_CODE") // empty means create a fresh room
	flubRate := 0.1

	code, playerID := enterRoom(baseURL, code, name)
	log.Printf("room %s as player %s", code, playerID)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	send(conn, intent{Type: "join_room_socket", Code: code, PlayerID: playerID})
	if os.Getenv("AUTO_START") != "" {
		send(conn, intent{Type: "start_game", Code: code, PlayerID: playerID})
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var sequence []string
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("socket closed: %v", err)
			return
		}
		var msg serverMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "countdown":
			log.Printf("countdown %d", msg.Count)
		case "round_started":
			sequence = msg.Sequence
			log.Printf("round %d, sequence %v", msg.Round, sequence)
		case "input_phase":
			attempt := append([]string(nil), sequence...)
			if len(attempt) > 0 && rnd.Float64() < flubRate {
				attempt[rnd.Intn(len(attempt))] = "red"
				log.Printf("round %d: flubbing on purpose", msg.Round)
			}
			// Humans are not instant.
			time.Sleep(time.Duration(200+rnd.Intn(800)) * time.Millisecond)
			send(conn, intent{Type: "submit", Code: code, PlayerID: playerID, Sequence: attempt})
		case "round_result":
			log.Printf("round %d winner %q", msg.Round, msg.WinnerID)
		case "game_over":
			log.Printf("game over, winner %q", msg.WinnerID)
			return
		case "error":
			log.Printf("server error: %s", msg.Message)
		}
	}
}

// enterRoom creates a room, or joins ROOM_CODE when set, returning the
// room code and our player id.
func enterRoom(baseURL, code, name string) (string, string) {
	body, _ := json.Marshal(map[string]string{"displayName": name})
	url := baseURL + "/api/rooms"
	if code != "" {
		url = baseURL + "/api/rooms/" + code + "/join"
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Fatalf("enter room: status %d", resp.StatusCode)
	}
	var rr roomResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		log.Fatal(err)
	}
	return rr.Room.Code, rr.PlayerID
}

func send(conn *websocket.Conn, v intent) {
	data, _ := json.Marshal(v)
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
