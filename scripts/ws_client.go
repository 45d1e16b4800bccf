// Package main runs a demo WebSocket client against the solve stream.
package main

import (
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/gorilla/websocket"
)

type progressEvent struct {
	Type      string         `json:"type"`
	Iteration int            `json:"iteration,omitempty"`
	BestCost  int            `json:"bestCost,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/solve/stream"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	req := map[string]any{
		"numVehicles": 2,
		"starts":      []int{0, 0},
		"ends":        []int{0, 0},
		"matrix": [][]int{
			{0, 10, 15, 20},
			{10, 0, 35, 25},
			{15, 35, 0, 30},
			{20, 25, 30, 0},
		},
		"serviceTime": 5,
	}
	if err := c.WriteJSON(req); err != nil {
		log.Fatal(err)
	}

	for {
		var ev progressEvent
		if err := c.ReadJSON(&ev); err != nil {
			log.Printf("read: %v", err)
			return
		}
		switch ev.Type {
		case "progress":
			log.Printf("WS <- progress: iteration=%d bestCost=%d", ev.Iteration, ev.BestCost)
		case "result":
			log.Printf("WS <- result: status=%v", ev.Result["status"])
			fmt.Printf("%v\n", ev.Result)
			return
		case "error":
			log.Fatalf("WS <- error: %s", ev.Error)
		}
	}
}
