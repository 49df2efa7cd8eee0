package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/example/recipe-for-chaos/internal/content"
	"github.com/example/recipe-for-chaos/internal/game"
	"github.com/example/recipe-for-chaos/internal/server"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	var (
		httpPort = flag.String("http-port", "8080", "HTTP port")
		certFile = flag.String("cert", "", "Path to certificate file")
		keyFile  = flag.String("key", "", "Path to private key file")
	)
	flag.Parse()

	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		log.Printf("LLM_API_KEY not set; content generation will fall back to built-in events")
	}
	gen := content.NewClient(apiKey)

	gs := server.NewGameServer(game.ConfigFromEnv(), gen)

	r := mux.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	r.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}).Methods("GET")

	r.HandleFunc("/ws", gs.HandleWS)
	r.HandleFunc("/api/sessions", gs.HandleListSessions).Methods("GET")

	addr := ":" + *httpPort
	if *certFile != "" && *keyFile != "" {
		log.Printf("Recipe for Chaos backend (HTTPS) listening on %s", addr)
		log.Fatal(http.ListenAndServeTLS(addr, *certFile, *keyFile, r))
	}
	log.Printf("Recipe for Chaos backend listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
