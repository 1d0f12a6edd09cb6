package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"command-center/pkg/db"
	"command-center/pkg/sim"
	"command-center/pkg/store"
	"command-center/pkg/version"
)

func main() {
	addr := flag.String("addr", ":3001", "listen address")
	delay := flag.Duration("delay", 400*time.Millisecond, "delay between scripted envelopes")
	seed := flag.Int64("seed", time.Now().UnixNano(), "rng seed for payment amounts/signatures")
	requireAuth := flag.Bool("auth", false, "require bearer tokens on dispatch (enables /api/v1/auth, needs MySQL)")
	flag.Parse()

	taskStore := store.NewMemoryStore()
	hub := sim.NewHub()
	scenario := sim.NewScenario(hub, taskStore, *delay, *seed)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	sim.RegisterAgentRoutes(mux, sim.SeedAgents())
	sim.RegisterDispatchRoutes(mux, taskStore, sim.BearerAuth(*requireAuth), scenario)

	if *requireAuth {
		gdb, err := db.Init()
		if err != nil {
			log.Fatalf("user store init failed: %v", err)
		}
		(&sim.AuthHandler{DB: gdb}).RegisterRoutes(mux)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("simbackend version=%s listening on %s (auth=%v)", version.Build, *addr, *requireAuth)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
