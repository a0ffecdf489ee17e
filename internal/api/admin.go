package api

import (
	"net/http"

	"github.com/jesusllicag/gesa-sub000/internal/billing"
	"github.com/jesusllicag/gesa-sub000/internal/db"
)

type provisionBody struct {
	ClienteID       uint   `json:"cliente_id"`
	TipoInstanciaID uint   `json:"tipo_instancia_id"`
	Nombre          string `json:"nombre"`
	RamGb           int    `json:"ram_gb"`
	DiscoGb         int    `json:"disco_gb"`
	TipoDisco       string `json:"tipo_disco"`
	TipoConexion    string `json:"tipo_conexion"`
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	var body provisionBody
	if !decodeBody(w, r, &body) {
		return
	}

	sv, err := s.engine.Provision(r.Context(), billing.ProvisionRequest{
		ClienteID:       body.ClienteID,
		TipoInstanciaID: body.TipoInstanciaID,
		Nombre:          body.Nombre,
		RamGb:           body.RamGb,
		DiscoGb:         body.DiscoGb,
		TipoDisco:       billing.TipoDisco(body.TipoDisco),
		TipoConexion:    billing.TipoConexion(body.TipoConexion),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	view := struct {
		servidorView
		TokenAprobacion string `json:"token_aprobacion"`
	}{
		servidorView:    s.servidorView(sv, s.clock.Now()),
		TokenAprobacion: *sv.TokenAprobacion,
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.engine.Terminate(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mensaje": "Servidor dado de baja."})
}

type specsBody struct {
	RamGb           *int `json:"ram_gb"`
	DiscoGb         *int `json:"disco_gb"`
	RecalcularCosto bool `json:"recalcular_costo"`
}

func (s *Server) handleUpdateSpecs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var body specsBody
	if !decodeBody(w, r, &body) {
		return
	}

	sv, err := s.engine.UpdateSpecs(r.Context(), id, body.RamGb, body.DiscoGb, body.RecalcularCosto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.servidorView(sv, s.clock.Now()))
}

type validarBody struct {
	Observaciones string `json:"observaciones"`
}

func (s *Server) handleValidarPago(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pagoID, ok := pathID(w, r, "pagoId")
	if !ok {
		return
	}

	var body validarBody
	if r.ContentLength > 0 && !decodeBody(w, r, &body) {
		return
	}

	pago, err := s.engine.ValidatePago(r.Context(), id, pagoID, body.Observaciones)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPagoView(pago))
}

func (s *Server) handlePagosPendientes(w http.ResponseWriter, r *http.Request) {
	var pagos []db.PagoMensual
	err := s.repo.DB().
		Where("estado = ?", billing.PagoPendiente.String()).
		Order("created_at ASC").
		Find(&pagos).Error
	if err != nil {
		writeError(w, billing.ErrBaseDatosf("listar pagos pendientes: %v", err))
		return
	}

	views := make([]pagoView, 0, len(pagos))
	for i := range pagos {
		views = append(views, toPagoView(&pagos[i]))
	}
	writeJSON(w, http.StatusOK, views)
}
