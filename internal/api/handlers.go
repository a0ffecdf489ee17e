package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jesusllicag/gesa-sub000/internal/billing"
	"github.com/jesusllicag/gesa-sub000/internal/db"
)

type servidorView struct {
	ID               uint       `json:"id"`
	Nombre           string     `json:"nombre"`
	Estado           string     `json:"estado"`
	EstadoDetalle    string     `json:"estado_detalle"`
	CostoDiario      string     `json:"costo_diario"`
	ActiveMs         int64      `json:"active_ms"`
	BilledActiveMs   int64      `json:"billed_active_ms"`
	DeudaMs          int64      `json:"deuda_ms"`
	DeudaDias        string     `json:"deuda_dias"`
	DiasCobrables    string     `json:"dias_cobrables"`
	FirstActivatedAt *time.Time `json:"first_activated_at,omitempty"`
}

func (s *Server) servidorView(sv *db.Servidor, now time.Time) servidorView {
	estado := billing.Estado(sv.Estado)
	return servidorView{
		ID:               sv.ID,
		Nombre:           sv.Nombre,
		Estado:           sv.Estado,
		EstadoDetalle:    estado.DisplayName(),
		CostoDiario:      sv.CostoDiario.StringFixed(4),
		ActiveMs:         billing.CurrentActiveMs(sv, now),
		BilledActiveMs:   sv.BilledActiveMs,
		DeudaMs:          billing.PendingDebtMs(sv, now),
		DeudaDias:        billing.PendingDebtDays(sv, now).StringFixed(4),
		DiasCobrables:    billing.ChargeableDays(sv, now).StringFixed(4),
		FirstActivatedAt: sv.FirstActivatedAt,
	}
}

type pagoView struct {
	ID             uint       `json:"id"`
	ServidorID     uint       `json:"servidor_id"`
	Anio           int        `json:"anio"`
	Mes            int        `json:"mes"`
	Monto          string     `json:"monto"`
	Estado         string     `json:"estado"`
	MedioPago      string     `json:"medio_pago"`
	FechaPago      *time.Time `json:"fecha_pago,omitempty"`
	ReferenciaPago string     `json:"referencia_pago,omitempty"`
	Observaciones  string     `json:"observaciones,omitempty"`
}

func toPagoView(p *db.PagoMensual) pagoView {
	return pagoView{
		ID:             p.ID,
		ServidorID:     p.ServidorID,
		Anio:           p.Anio,
		Mes:            p.Mes,
		Monto:          p.Monto.StringFixed(2),
		Estado:         p.Estado,
		MedioPago:      p.MedioPago,
		FechaPago:      p.FechaPago,
		ReferenciaPago: p.ReferenciaPago,
		Observaciones:  p.Observaciones,
	}
}

type tarjetaPayload struct {
	Token                string `json:"token"`
	Installments         int    `json:"installments"`
	PaymentMethodID      string `json:"payment_method_id"`
	IssuerID             string `json:"issuer_id"`
	IdentificationType   string `json:"identification_type"`
	IdentificationNumber string `json:"identification_number"`
}

func (p *tarjetaPayload) toRequest() *billing.TarjetaRequest {
	return &billing.TarjetaRequest{
		Token:                p.Token,
		MethodID:             p.PaymentMethodID,
		Installments:         p.Installments,
		IssuerID:             p.IssuerID,
		IdentificationType:   p.IdentificationType,
		IdentificationNumber: p.IdentificationNumber,
	}
}

func clienteID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := r.Header.Get("X-Cliente-ID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		writeError(w, billing.ErrValidacionf("Falta la identidad del cliente.", "X-Cliente-ID %q", raw))
		return 0, false
	}
	return uint(id), true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	if err != nil || id == 0 {
		// Un id que no parsea equivale a un recurso inexistente.
		writeError(w, billing.ErrNoEncontradof("path %s=%q", name, r.PathValue(name)))
		return 0, false
	}
	return uint(id), true
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	cid, ok := clienteID(w, r)
	if !ok {
		return
	}

	var servidores []db.Servidor
	if err := s.repo.DB().Where("cliente_id = ?", cid).Order("id ASC").Find(&servidores).Error; err != nil {
		writeError(w, billing.ErrBaseDatosf("listar servidores de cliente %d: %v", cid, err))
		return
	}

	now := s.clock.Now()
	views := make([]servidorView, 0, len(servidores))
	for i := range servidores {
		views = append(views, s.servidorView(&servidores[i], now))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	cid, ok := clienteID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var sv db.Servidor
	err := s.repo.DB().Where("id = ? AND cliente_id = ?", id, cid).First(&sv).Error
	if err != nil {
		writeError(w, billing.ErrNoEncontradof("servidor %d para cliente %d: %v", id, cid, err))
		return
	}

	writeJSON(w, http.StatusOK, s.servidorView(&sv, s.clock.Now()))
}

func (s *Server) handleListPagos(w http.ResponseWriter, r *http.Request) {
	cid, ok := clienteID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	// El historial de pagos sobrevive a la baja del servidor.
	var sv db.Servidor
	err := s.repo.DB().Unscoped().Where("id = ? AND cliente_id = ?", id, cid).First(&sv).Error
	if err != nil {
		writeError(w, billing.ErrNoEncontradof("servidor %d para cliente %d: %v", id, cid, err))
		return
	}

	var pagos []db.PagoMensual
	if err := s.repo.DB().Where("servidor_id = ?", sv.ID).Order("created_at ASC").Find(&pagos).Error; err != nil {
		writeError(w, billing.ErrBaseDatosf("listar pagos de servidor %d: %v", sv.ID, err))
		return
	}

	views := make([]pagoView, 0, len(pagos))
	for i := range pagos {
		views = append(views, toPagoView(&pagos[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	cid, ok := clienteID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	sv, err := s.engine.Start(r.Context(), cid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.servidorView(sv, s.clock.Now()))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	cid, ok := clienteID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	sv, err := s.engine.Stop(r.Context(), cid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.servidorView(sv, s.clock.Now()))
}

type approveBody struct {
	MedioPago string `json:"medio_pago"`
	tarjetaPayload
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var body approveBody
	if !decodeBody(w, r, &body) {
		return
	}

	sv, err := s.engine.Approve(r.Context(), r.PathValue("token"), billing.ApproveRequest{
		Medio:   billing.MedioPago(body.MedioPago),
		Tarjeta: body.tarjetaPayload.toRequest(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.servidorView(sv, s.clock.Now()))
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reject(r.Context(), r.PathValue("token")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mensaje": "Servidor rechazado y dado de baja."})
}

func (s *Server) handlePagarDeuda(w http.ResponseWriter, r *http.Request) {
	cid, ok := clienteID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var body tarjetaPayload
	if !decodeBody(w, r, &body) {
		return
	}

	pago, err := s.engine.SettleDebt(r.Context(), cid, id, body.toRequest())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPagoView(pago))
}

type mensualidadBody struct {
	MedioPago string `json:"medio_pago"`
	tarjetaPayload
}

func (s *Server) handlePagarMensualidad(w http.ResponseWriter, r *http.Request) {
	cid, ok := clienteID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var body mensualidadBody
	if !decodeBody(w, r, &body) {
		return
	}

	pago, err := s.engine.PayAdvance(r.Context(), cid, id, billing.MedioPago(body.MedioPago), body.tarjetaPayload.toRequest())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPagoView(pago))
}

func (s *Server) handlePagarTransferencia(w http.ResponseWriter, r *http.Request) {
	cid, ok := clienteID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	pago, err := s.engine.SettleDebtTransfer(r.Context(), cid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPagoView(pago))
}

func (s *Server) handleCotizacion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	tipoID, err := strconv.ParseUint(q.Get("tipo"), 10, 32)
	if err != nil {
		writeError(w, billing.ErrValidacionf("Parámetro tipo inválido.", "tipo=%q", q.Get("tipo")))
		return
	}
	discoGb, err := strconv.Atoi(q.Get("disco_gb"))
	if err != nil {
		writeError(w, billing.ErrValidacionf("Parámetro disco_gb inválido.", "disco_gb=%q", q.Get("disco_gb")))
		return
	}

	diario, mensual, qerr := s.engine.Quote(uint(tipoID), discoGb,
		billing.TipoDisco(q.Get("tipo_disco")), billing.TipoConexion(q.Get("conexion")))
	if qerr != nil {
		writeError(w, qerr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"costo_diario":  diario.StringFixed(4),
		"costo_mensual": mensual.StringFixed(2),
	})
}
