// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"swcbackend/internal/catalog"
	"swcbackend/internal/cleanup"
	"swcbackend/internal/config"
	"swcbackend/internal/data"
	"swcbackend/internal/logger"
	"swcbackend/internal/middleware"
	"swcbackend/internal/payment"
	"swcbackend/internal/paypal"
	"swcbackend/internal/webhook"
)

type App struct {
	addr          string
	mux           *http.ServeMux
	connections   sync.WaitGroup
	totalRequests int64
}

func main() {
	// Configuration first, then logging: nothing logs before the logger is up.
	config.LoadEnv()
	config.ConfigurePaths()

	if err := logger.SetupLogger(config.LoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.LogInfo("Environment and paths loaded. Logger ready.")

	if err := config.LoadPayPalConfig(); err != nil {
		logger.LogFatal("Failed to load PayPal config: %v", err)
	}
	config.LoadCORSConfig()
	config.LoadRedirectConfig()
	config.LoadOrderExpiry()

	if err := data.InitDB(config.DatabasePath()); err != nil {
		logger.LogFatal("Failed to initialize database: %v", err)
	}
	defer data.CloseDB()

	client := paypal.NewClient(config.ClientID(), config.ClientSecret(), config.APIBase)
	svc := payment.NewService(client, catalog.NewService())
	handlers := payment.NewHandlers(svc)
	hooks := webhook.NewHandler(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cleanup.StartOrderSweep(ctx)

	app := &App{
		addr: serverAddress(),
		mux:  routes(handlers, hooks),
	}
	app.Run()
}

// serverAddress builds the server address from environment variables
func serverAddress() string {
	host := os.Getenv("SERVER_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "5052"
	}
	return host + ":" + port
}

// routes sets up all API routes
func routes(handlers *payment.Handlers, hooks *webhook.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/create-order", middleware.APIMiddleware(handlers.CreateOrderHandler))
	apiMux.HandleFunc("/get-order", middleware.APIMiddleware(handlers.GetOrderHandler))
	apiMux.HandleFunc("/capture-order", middleware.APIMiddleware(handlers.CaptureOrderHandler))
	apiMux.HandleFunc("/validate-merchant", middleware.APIMiddleware(handlers.ValidateMerchantHandler))
	apiMux.HandleFunc("/paypal-webhook", hooks.ServeHTTP)

	mux.Handle("/api/", http.StripPrefix("/api", apiMux))

	return mux
}

// Run starts the HTTP server and blocks until shutdown completes.
func (a *App) Run() {
	server := &http.Server{
		Addr:         a.addr,
		Handler:      a.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.LogInfo("Starting server on %s", a.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogFatal("Server failed: %v", err)
		}
	}()

	<-stop
	logger.LogInfo("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.LogError("Server shutdown error: %v", err)
	}

	logger.LogInfo("Waiting for active connections to finish...")
	a.connections.Wait()
	logger.LogInfo("All connections closed. Total requests handled: %d", atomic.LoadInt64(&a.totalRequests))
	logger.LogInfo("Server shut down gracefully")
}

// Handler assembles the outer middleware around the main mux
func (a *App) Handler() http.Handler {
	var handler http.Handler = a.mux

	handler = a.trackConnections(handler)
	handler = withTimeout(handler, 15*time.Second)

	return handler
}

func withTimeout(h http.Handler, timeout time.Duration) http.Handler {
	return http.TimeoutHandler(h, timeout, "Request timed out")
}

func (a *App) trackConnections(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.connections.Add(1)
		atomic.AddInt64(&a.totalRequests, 1)
		defer a.connections.Done()

		h.ServeHTTP(w, r)
	})
}
