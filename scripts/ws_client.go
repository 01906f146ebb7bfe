// Package main runs a demo WebSocket client for solve job events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type node struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Demand  int     `json:"demand"`
	IsDepot bool    `json:"isDepot"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Random 30 customer problem around a central depot
	nodes := map[string]node{"depot": {X: 50, Y: 50, IsDepot: true}}
	for i := 1; i <= 30; i++ {
		nodes["c"+strconv.Itoa(i)] = node{X: rand.Float64() * 100, Y: rand.Float64() * 100, Demand: 1 + rand.Intn(9)}
	}
	body, _ := json.Marshal(map[string]any{
		"description": map[string]any{"name": "ws-demo", "capacity": 40, "edgeWeightType": "EUC_2D", "nodes": nodes},
		"generations": 3000,
	})
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/solve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	setAuth(req.Header)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var accepted struct {
		JobID string `json:"jobId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		log.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted || accepted.JobID == "" {
		log.Fatalf("solve returned %s", resp.Status)
	}
	log.Printf("Job ID: %s", accepted.JobID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/jobs/" + accepted.JobID + "/ws"}
	hdr := http.Header{}
	setAuth(hdr)
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "ping"}); err != nil {
		log.Fatal(err)
	}
	for {
		var m wsMessage
		if err := c.ReadJSON(&m); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("read: %v", err)
			}
			return
		}
		log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		if m.Type == "job.succeeded" || m.Type == "job.failed" {
			return
		}
	}
}

// setAuth sends TOKEN as a bearer token, or the admin role header for servers without auth.
func setAuth(h http.Header) {
	if tok := os.Getenv("TOKEN"); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
		return
	}
	h.Set("X-Role", "admin")
}
