package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/amsaid/smartshop/internal/config"
	"github.com/amsaid/smartshop/internal/dashboard"
	"github.com/amsaid/smartshop/internal/database"
	"github.com/amsaid/smartshop/internal/ledger"
	"github.com/amsaid/smartshop/internal/logger"
	"github.com/amsaid/smartshop/internal/models"
	"github.com/amsaid/smartshop/internal/store"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Init logger: %v", err)
	}
	defer logg.Sync()

	ctx := context.Background()

	st, err := store.Open(ctx, &cfg.Database, logg)
	if err != nil {
		logg.Fatal("open store", "error", err)
	}
	defer st.Close()

	engine := ledger.New(st, logg)

	dash := dashboard.NewService(st, logg)
	dash.Start(ctx)
	defer dash.Stop()

	mux := http.NewServeMux()

	mux.HandleFunc("/products", handleProducts(engine, st))
	mux.HandleFunc("/products/", handleProductByID(engine, st))
	mux.HandleFunc("/cart", handleCart(engine, st))
	mux.HandleFunc("/cart/items", handleCartItems(engine))
	mux.HandleFunc("/cart/items/", handleCartItemByID(engine))
	mux.HandleFunc("/checkout", handleCheckout(engine))
	mux.HandleFunc("/orders", handleOrders(st))
	mux.HandleFunc("/orders/", handleOrderByID(engine))
	mux.HandleFunc("/dashboard", handleDashboard(dash))
	mux.HandleFunc("/dashboard/stream", handleDashboardStream(dash))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logg.Info("server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		logg.Fatal("server error", "error", err)
	}
}

func handleProducts(engine *ledger.Engine, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Name     string  `json:"name"`
				Price    float64 `json:"price"`
				Quantity int     `json:"quantity"`
				ImageRef string  `json:"image_ref"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			product, err := engine.AddProduct(ctx, req.Name, decimal.NewFromFloat(req.Price), req.Quantity, req.ImageRef)
			if err != nil {
				respondDomainError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, product)

		case http.MethodGet:
			products, err := st.Products(ctx)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}

			respondJSON(w, http.StatusOK, products)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleProductByID(engine *ledger.Engine, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := pathID(r.URL.Path, "/products/")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			product, err := st.ProductByID(ctx, id)
			if err != nil {
				respondDomainError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, product)

		case http.MethodPut:
			var req struct {
				Name     string  `json:"name"`
				Price    float64 `json:"price"`
				Quantity int     `json:"quantity"`
				ImageRef string  `json:"image_ref"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			product := models.Product{
				ID:       id,
				Name:     req.Name,
				Price:    decimal.NewFromFloat(req.Price),
				Quantity: req.Quantity,
				ImageRef: req.ImageRef,
			}
			if err := engine.UpdateProduct(ctx, product); err != nil {
				respondDomainError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, product)

		case http.MethodDelete:
			if err := engine.DeleteProduct(ctx, id); err != nil {
				respondDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleCart(engine *ledger.Engine, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodGet:
			items, err := st.CartItems(ctx)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondJSON(w, http.StatusOK, items)

		case http.MethodDelete:
			if err := engine.ClearCart(ctx); err != nil {
				respondDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleCartItems(engine *ledger.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			ProductID int64 `json:"product_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := engine.AddToCart(r.Context(), req.ProductID); err != nil {
			respondDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCartItemByID(engine *ledger.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := pathID(r.URL.Path, "/cart/items/")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		switch r.Method {
		case http.MethodPut:
			var req struct {
				Quantity int `json:"quantity"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			if err := engine.SetCartQuantity(ctx, id, req.Quantity); err != nil {
				respondDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case http.MethodDelete:
			if err := engine.RemoveFromCart(ctx, id); err != nil {
				respondDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleCheckout(engine *ledger.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		orderID, err := engine.Checkout(r.Context())
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, map[string]int64{"order_id": orderID})
	}
}

func handleOrders(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		orders, err := st.Orders(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondJSON(w, http.StatusOK, orders)
	}
}

func handleOrderByID(engine *ledger.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		id, err := pathID(r.URL.Path, "/orders/")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		order, err := engine.OrderWithItems(r.Context(), id)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, order)
	}
}

func handleDashboard(dash *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		state, ok := dash.Current()
		if !ok {
			respondError(w, http.StatusServiceUnavailable, "Dashboard not ready")
			return
		}

		respondJSON(w, http.StatusOK, state)
	}
}

// handleDashboardStream serves the combined dashboard state over SSE: the
// current snapshot immediately, then one event per change.
func handleDashboardStream(dash *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			respondError(w, http.StatusInternalServerError, "Streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		sub := dash.Observe()
		defer sub.Cancel()

		for {
			select {
			case <-r.Context().Done():
				return
			case state, ok := <-sub.C():
				if !ok {
					return
				}
				payload, err := json.Marshal(state)
				if err != nil {
					continue
				}
				if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func pathID(path, prefix string) (int64, error) {
	return strconv.ParseInt(strings.TrimPrefix(path, prefix), 10, 64)
}

func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case database.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrEmptyCart):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrProductNotFound), errors.Is(err, database.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
