// Seeds a demo session from a JSON snapshot of players, ready to join with
// the printed code. Intended for local development against a fresh database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/lobascore/lobascore/go/internal/dbconfig"
	"github.com/lobascore/lobascore/go/internal/gamecode"
)

// DemoPlayer mirrors the JSON snapshot structure.
type DemoPlayer struct {
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
}

func main() {
	path := "go/internal/assets/demo_players.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the JSON snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var demoPlayers []DemoPlayer
	if err := json.Unmarshal(data, &demoPlayers); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}
	if len(demoPlayers) == 0 {
		fmt.Fprintln(os.Stderr, "snapshot has no players")
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	ctx := context.Background()
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := cfg.Connect(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert the waiting session and its players
	sessionID := uuid.New()
	code := gamecode.Generate()

	_, err = pool.Exec(ctx,
		`INSERT INTO sessions (id, code, status, current_round) VALUES ($1, $2, 'waiting', 0)`,
		sessionID, code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert session: %v\n", err)
		os.Exit(1)
	}

	var hostID *uuid.UUID
	for _, p := range demoPlayers {
		playerID := uuid.New()
		_, err := pool.Exec(ctx,
			`INSERT INTO players (id, session_id, name, session_token, is_host, total_score, is_eliminated)
			 VALUES ($1, $2, $3, $4, $5, 0, FALSE)`,
			playerID, sessionID, p.Name, uuid.New().String(), p.IsHost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert player %s: %v\n", p.Name, err)
			os.Exit(1)
		}
		if p.IsHost && hostID == nil {
			hostID = &playerID
		}
	}
	if hostID == nil {
		fmt.Fprintln(os.Stderr, "snapshot has no host player")
		os.Exit(1)
	}
	if _, err := pool.Exec(ctx,
		`UPDATE sessions SET host_player_id = $2 WHERE id = $1`, sessionID, *hostID); err != nil {
		fmt.Fprintf(os.Stderr, "set host: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seeded session %s with %d players, join code %s\n", sessionID, len(demoPlayers), code)
}
