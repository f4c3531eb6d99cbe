// Command dev-stubs runs stub versions of the storefront's upstream services
// (catalog, auth, orders) on a single port, for local development and
// black-box integration tests.
//
// Auth accepts any bearer token of the form "user:<id>" and resolves it to
// customer <id>. Orders are accepted unconditionally and assigned a fresh
// UUID. The catalog serves a small fixed dessert menu.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
)

type stubProduct struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Price    string    `json:"price"`
	Category string    `json:"category"`
	Image    stubImage `json:"image"`
}

type stubImage struct {
	Thumbnail string `json:"thumbnail"`
	Mobile    string `json:"mobile"`
	Tablet    string `json:"tablet"`
	Desktop   string `json:"desktop"`
}

var products = []stubProduct{
	{ID: "1", Name: "Waffle with Berries", Price: "6.50", Category: "Waffle", Image: stubImage{Thumbnail: "/images/waffle.jpg"}},
	{ID: "2", Name: "Vanilla Bean Creme Brulee", Price: "7.00", Category: "Creme Brulee", Image: stubImage{Thumbnail: "/images/creme-brulee.jpg"}},
	{ID: "3", Name: "Macaron Mix of Five", Price: "8.00", Category: "Macaron", Image: stubImage{Thumbnail: "/images/macaron.jpg"}},
	{ID: "4", Name: "Classic Tiramisu", Price: "5.50", Category: "Tiramisu", Image: stubImage{Thumbnail: "/images/tiramisu.jpg"}},
	{ID: "5", Name: "Pistachio Baklava", Price: "4.00", Category: "Baklava", Image: stubImage{Thumbnail: "/images/baklava.jpg"}},
}

func main() {
	var addr string
	flag.StringVar(&addr, "addr", "0.0.0.0:9090", "listen address")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", listProducts)
	mux.HandleFunc("GET /products/{id}", getProduct)
	mux.HandleFunc("GET /auth/me", authMe)
	mux.HandleFunc("POST /orders", createOrder)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("dev-stubs listening", slog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func listProducts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, products)
}

func getProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, p := range products {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "product not found"})
}

func authMe(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	id, ok := strings.CutPrefix(token, "user:")
	if !ok || id == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"userId": id, "role": "customer"})
}

func createOrder(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	slog.Info("order received",
		slog.Any("totalQuantity", body["totalQuantity"]),
		slog.Any("total", body["total"]),
	)
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":     uuid.NewString(),
		"status": "pending",
	})
}
