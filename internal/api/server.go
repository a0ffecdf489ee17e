package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jesusllicag/gesa-sub000/internal/billing"
	"github.com/jesusllicag/gesa-sub000/internal/db"
)

// Server expone el portal de autoservicio y los endpoints de
// administración. La autenticación queda en la capa externa: el portal
// confía en X-Cliente-ID y /admin se sirve solo en la red interna.
type Server struct {
	engine *billing.Engine
	repo   *db.Repository
	clock  billing.Clock
	server *http.Server
}

func NewServer(addr string, engine *billing.Engine, repo *db.Repository, clock billing.Clock) *Server {
	s := &Server{
		engine: engine,
		repo:   repo,
		clock:  clock,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Portal de clientes
	mux.HandleFunc("GET /servers", s.handleListServers)
	mux.HandleFunc("GET /servers/{id}", s.handleGetServer)
	mux.HandleFunc("GET /servers/{id}/pagos", s.handleListPagos)
	mux.HandleFunc("POST /servers/{id}/start", s.handleStart)
	mux.HandleFunc("POST /servers/{id}/stop", s.handleStop)
	mux.HandleFunc("POST /servers/{token}/approve", s.handleApprove)
	mux.HandleFunc("POST /servers/{token}/reject", s.handleReject)
	mux.HandleFunc("POST /servers/{id}/pagar-deuda", s.handlePagarDeuda)
	mux.HandleFunc("POST /servers/{id}/pagar-mensualidad", s.handlePagarMensualidad)
	mux.HandleFunc("POST /servers/{id}/pagar-transferencia", s.handlePagarTransferencia)
	mux.HandleFunc("GET /cotizacion", s.handleCotizacion)

	// Administración
	mux.HandleFunc("POST /admin/servers", s.handleProvision)
	mux.HandleFunc("POST /admin/servers/{id}/terminate", s.handleTerminate)
	mux.HandleFunc("PUT /admin/servers/{id}/specs", s.handleUpdateSpecs)
	mux.HandleFunc("POST /admin/servers/{id}/pagos/{pagoId}/validar", s.handleValidarPago)
	mux.HandleFunc("GET /admin/pagos/pendientes", s.handlePagosPendientes)

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return s
}

func (s *Server) Start() error {
	slog.Info("Portal HTTP escuchando", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Handler expone el mux para pruebas con httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
