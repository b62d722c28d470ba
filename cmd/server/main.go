// Package main runs the settlement server: registry, box office, resale
// marketplace, and the cross-module listing bridge behind a JSON HTTP API,
// with a WebSocket receipt feed and Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"ticket-settlement-lab/internal/boxoffice"
	"ticket-settlement-lab/internal/bridge"
	"ticket-settlement-lab/internal/clock"
	"ticket-settlement-lab/internal/domain"
	"ticket-settlement-lab/internal/feed"
	"ticket-settlement-lab/internal/guard"
	"ticket-settlement-lab/internal/marketplace"
	"ticket-settlement-lab/internal/observability"
	"ticket-settlement-lab/internal/registry"
	"ticket-settlement-lab/internal/storage"
	chstore "ticket-settlement-lab/internal/storage/clickhouse"
	"ticket-settlement-lab/internal/storage/memory"
	"ticket-settlement-lab/internal/storage/migrations"
	pgstore "ticket-settlement-lab/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	marketplaceStore storage.MarketplaceStore
	platformStore    storage.PlatformStore
	listingStore     storage.ListingStore
	venueStore       storage.VenueStore
	eventStore       storage.EventStore
	receiptStore     storage.ReceiptStore
	ledger           storage.Ledger
	saleRecords      storage.SaleRecordStore // optional analytics mirror
}

// Server holds all components of the settlement service.
type Server struct {
	stores      *allStores
	guards      *guard.Registry
	hub         *feed.Hub
	marketplace *marketplace.Service
	boxoffice   *boxoffice.Service
	bridge      *bridge.Service
	registry    *registry.Service
	logger      *log.Logger
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional analytics mirror)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	guards := guard.NewRegistry()
	if !*useMemory {
		// Guards live in process memory; re-register them for rows that
		// survived a restart.
		if err := rehydrateGuards(ctx, *postgresDSN, guards); err != nil {
			logger.Fatalf("Failed to rehydrate guards: %v", err)
		}
	}

	server := newServer(stores, guards, logger)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: server.routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func newServer(stores *allStores, guards *guard.Registry, logger *log.Logger) *Server {
	clk := clock.NewSystem()
	hub := feed.NewHub(nil, logger)
	sink := newCompositeSink(hub, stores.saleRecords, logger)

	mkt := marketplace.NewService(
		stores.marketplaceStore, stores.listingStore, stores.ledger,
		guards, stores.receiptStore, clk, sink,
		log.New(os.Stdout, "[marketplace] ", log.LstdFlags),
	)
	box := boxoffice.NewService(
		stores.platformStore, stores.venueStore, stores.eventStore,
		stores.ledger, guards, stores.receiptStore, nil, clk, sink,
		log.New(os.Stdout, "[boxoffice] ", log.LstdFlags),
	)
	brg := bridge.NewService(
		stores.eventStore, marketplace.NewCallHandler(mkt),
		stores.receiptStore, clk, sink,
		log.New(os.Stdout, "[bridge] ", log.LstdFlags),
	)
	reg := registry.NewService(
		stores.platformStore, stores.venueStore, stores.eventStore,
		guards, clk,
		log.New(os.Stdout, "[registry] ", log.LstdFlags),
	)

	return &Server{
		stores:      stores,
		guards:      guards,
		hub:         hub,
		marketplace: mkt,
		boxoffice:   box,
		bridge:      brg,
		registry:    reg,
		logger:      logger,
	}
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*allStores, func(), error) {
	stores := &allStores{}
	cleanups := []func(){}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if useMemory {
		stores.marketplaceStore = memory.NewMarketplaceStore()
		stores.platformStore = memory.NewPlatformStore()
		stores.listingStore = memory.NewListingStore()
		stores.venueStore = memory.NewVenueStore()
		stores.eventStore = memory.NewEventStore()
		stores.receiptStore = memory.NewReceiptStore()
		stores.ledger = memory.NewLedger()
	} else {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		cleanups = append(cleanups, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}

		stores.marketplaceStore = pgstore.NewMarketplaceStore(pool)
		stores.platformStore = pgstore.NewPlatformStore(pool)
		stores.listingStore = pgstore.NewListingStore(pool)
		stores.venueStore = pgstore.NewVenueStore(pool)
		stores.eventStore = pgstore.NewEventStore(pool)
		stores.receiptStore = pgstore.NewReceiptStore(pool)
		stores.ledger = pgstore.NewLedger(pool)
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		cleanups = append(cleanups, func() { conn.Close() })
		stores.saleRecords = chstore.NewSaleRecordStore(conn)
		logger.Println("ClickHouse analytics mirror enabled")
	}

	return stores, cleanup, nil
}

// rehydrateGuards re-registers the per-listing and per-event guards for rows
// already in PostgreSQL.
func rehydrateGuards(ctx context.Context, postgresDSN string, guards *guard.Registry) error {
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	for _, table := range []string{"listings", "events"} {
		rows, err := pool.Query(ctx, fmt.Sprintf("SELECT id FROM %s", table))
		if err != nil {
			return fmt.Errorf("select %s ids: %w", table, err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan %s id: %w", table, err)
			}
			guards.Register(id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate %s ids: %w", table, err)
		}
	}
	return nil
}

// compositeSink fans receipts out to the WebSocket feed, Prometheus metrics,
// and the optional analytics mirror.
type compositeSink struct {
	hub     *feed.Hub
	mirror  storage.SaleRecordStore
	logger  *log.Logger
	timeout time.Duration
}

func newCompositeSink(hub *feed.Hub, mirror storage.SaleRecordStore, logger *log.Logger) *compositeSink {
	return &compositeSink{hub: hub, mirror: mirror, logger: logger, timeout: 5 * time.Second}
}

func (s *compositeSink) Publish(r *domain.Receipt) {
	switch r.Kind {
	case domain.ReceiptListingCreated:
		observability.RecordListingCreated()
	case domain.ReceiptListingSold:
		observability.RecordListingSold(r.Price, r.Fee)
	case domain.ReceiptListingCancelled:
		observability.RecordListingCancelled()
	case domain.ReceiptTicketsPurchased:
		observability.RecordTicketsPurchased(r.Quantity, r.TotalPaid, r.Fee)
	}

	s.hub.Publish(r)

	if s.mirror != nil {
		// Mirroring must not block or fail settlement.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := s.mirror.Insert(ctx, r); err != nil {
				s.logger.Printf("analytics mirror: insert receipt %s: %v", r.ID, err)
			}
		}()
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.Handle("GET /feed", s.hub)

	mux.HandleFunc("POST /api/marketplace/init", s.handleMarketplaceInit)
	mux.HandleFunc("POST /api/marketplace/pause", s.handleMarketplacePause)
	mux.HandleFunc("POST /api/listings", s.handleCreateListing)
	mux.HandleFunc("GET /api/listings/{id}", s.handleGetListing)
	mux.HandleFunc("POST /api/listings/{id}/buy", s.handleBuyListing)
	mux.HandleFunc("POST /api/listings/{id}/cancel", s.handleCancelListing)

	mux.HandleFunc("POST /api/platform/init", s.handlePlatformInit)
	mux.HandleFunc("POST /api/platform/pause", s.handlePlatformPause)
	mux.HandleFunc("POST /api/venues", s.handleCreateVenue)
	mux.HandleFunc("POST /api/venues/{id}/verify", s.handleVerifyVenue)
	mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	mux.HandleFunc("POST /api/purchase", s.handlePurchase)
	mux.HandleFunc("POST /api/bridge/list", s.handleBridgeList)

	mux.HandleFunc("POST /api/accounts/deposit", s.handleDeposit)
	mux.HandleFunc("GET /api/accounts/{addr}/balance", s.handleBalance)
	mux.HandleFunc("GET /api/receipts", s.handleListReceipts)

	return mux
}

func (s *Server) handleMarketplaceInit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Authority string `json:"authority"`
		Treasury  string `json:"treasury"`
		FeeBps    uint16 `json:"fee_bps"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := s.marketplace.Initialize(r.Context(), req.Authority, req.Treasury, req.FeeBps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleMarketplacePause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Authority string `json:"authority"`
		Paused    bool   `json:"paused"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.marketplace.SetPaused(r.Context(), req.Authority, req.Paused); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seller        string `json:"seller"`
		EventID       string `json:"event_id"`
		AssetID       string `json:"asset_id"`
		Price         uint64 `json:"price"`
		OriginalPrice uint64 `json:"original_price"`
		ExpiresAt     int64  `json:"expires_at"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	l, err := s.marketplace.CreateListing(r.Context(), marketplace.CreateListingInput{
		Seller:        req.Seller,
		EventID:       req.EventID,
		AssetID:       req.AssetID,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	l, err := s.stores.listingStore.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleBuyListing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Buyer               string `json:"buyer"`
		VenueTreasury       string `json:"venue_treasury"`
		MarketplaceTreasury string `json:"marketplace_treasury"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	start := time.Now()
	receipt, err := s.marketplace.BuyListing(r.Context(), marketplace.BuyListingInput{
		Buyer:               req.Buyer,
		ListingID:           r.PathValue("id"),
		VenueTreasury:       req.VenueTreasury,
		MarketplaceTreasury: req.MarketplaceTreasury,
	})
	observability.RecordSettlementLatency("buy_listing", time.Since(start).Seconds())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seller string `json:"seller"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.marketplace.CancelListing(r.Context(), req.Seller, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlatformInit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner    string `json:"owner"`
		Treasury string `json:"treasury"`
		FeeBps   uint16 `json:"fee_bps"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := s.registry.InitializePlatform(r.Context(), req.Owner, req.Treasury, req.FeeBps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handlePlatformPause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner  string `json:"owner"`
		Paused bool   `json:"paused"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.registry.SetPaused(r.Context(), req.Owner, req.Paused); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

func (s *Server) handleCreateVenue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner       string `json:"owner"`
		VenueID     string `json:"venue_id"`
		Name        string `json:"name"`
		MetadataURI string `json:"metadata_uri"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	v, err := s.registry.CreateVenue(r.Context(), registry.CreateVenueInput{
		Owner:       req.Owner,
		VenueID:     req.VenueID,
		Name:        req.Name,
		MetadataURI: req.MetadataURI,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleVerifyVenue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.registry.VerifyVenue(r.Context(), req.Caller, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller       string `json:"caller"`
		VenueID      string `json:"venue_id"`
		EventID      uint64 `json:"event_id"`
		Name         string `json:"name"`
		TicketPrice  uint64 `json:"ticket_price"`
		TotalTickets uint32 `json:"total_tickets"`
		StartTime    int64  `json:"start_time"`
		EndTime      int64  `json:"end_time"`
		RefundWindow int64  `json:"refund_window"`
		MetadataURI  string `json:"metadata_uri"`
		Description  string `json:"description"`
		Transferable bool   `json:"transferable"`
		Resaleable   bool   `json:"resaleable"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := s.registry.CreateEvent(r.Context(), registry.CreateEventInput{
		Caller:       req.Caller,
		VenueID:      req.VenueID,
		EventID:      req.EventID,
		Name:         req.Name,
		TicketPrice:  req.TicketPrice,
		TotalTickets: req.TotalTickets,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		RefundWindow: req.RefundWindow,
		MetadataURI:  req.MetadataURI,
		Description:  req.Description,
		Transferable: req.Transferable,
		Resaleable:   req.Resaleable,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Buyer         string `json:"buyer"`
		EventID       string `json:"event_id"`
		Quantity      uint32 `json:"quantity"`
		VenueTreasury string `json:"venue_treasury"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	start := time.Now()
	result, err := s.boxoffice.Purchase(r.Context(), boxoffice.PurchaseInput{
		Buyer:         req.Buyer,
		EventID:       req.EventID,
		Quantity:      req.Quantity,
		VenueTreasury: req.VenueTreasury,
	})
	observability.RecordSettlementLatency("purchase_tickets", time.Since(start).Seconds())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBridgeList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner     string `json:"owner"`
		EventID   string `json:"event_id"`
		AssetID   string `json:"asset_id"`
		Price     uint64 `json:"price"`
		ExpiresAt int64  `json:"expires_at"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.bridge.ListTicket(r.Context(), bridge.ListTicketInput{
		Owner:     req.Owner,
		EventID:   req.EventID,
		AssetID:   req.AssetID,
		Price:     req.Price,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"listed": true})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Addr   string `json:"addr"`
		Amount uint64 `json:"amount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.stores.ledger.Deposit(r.Context(), req.Addr, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.stores.ledger.Balance(r.Context(), r.PathValue("addr"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	receipts, err := s.stores.receiptStore.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if receipts == nil {
		receipts = []*domain.Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError maps settlement errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateKey), errors.Is(err, domain.ErrAlreadyUsed):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrReentrancyLocked):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrPaused),
		errors.Is(err, domain.ErrNotActive),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrVenueNotVerified),
		errors.Is(err, domain.ErrResaleNotAllowed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientCapacity):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidTiming),
		errors.Is(err, domain.ErrPriceCapExceeded),
		errors.Is(err, domain.ErrMathOverflow):
		status = http.StatusBadRequest
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
