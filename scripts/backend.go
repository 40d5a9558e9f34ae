// Backend is a simple test HTTP server used as a probe target when running
// meshfront locally. It exposes /health for the prober and /whoami to show
// which backend served a request.
//
// Usage:
//
//	go run backend.go -port 8081 -name backend-1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
)

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	name := flag.String("name", "backend", "name reported by /whoami")
	unhealthy := flag.Bool("unhealthy", false, "answer 503 on /health")
	flag.Parse()

	mux := http.NewServeMux()

	// health endpoint used by the meshfront prober
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if *unhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("request: method=%s path=%s from=%s", r.Method, r.URL.Path, r.RemoteAddr)

		resp := map[string]any{"backend": *name}
		b, _ := json.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting backend %s on %s", *name, addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
