package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jesusllicag/gesa-sub000/internal/billing"
)

type errorBody struct {
	Code    string `json:"code"`
	Mensaje string `json:"mensaje"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("No se pudo serializar la respuesta", "error", err)
		}
	}
}

// writeError traduce la taxonomía de errores del motor a códigos HTTP:
// precondición 409, no encontrado 404, rechazo de la pasarela 402,
// pasarela caída 502, validación 400.
func writeError(w http.ResponseWriter, err error) {
	var berr *billing.Error
	if !errors.As(err, &berr) {
		slog.Error("Error no tipificado en handler", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    billing.ErrBaseDatos,
			Mensaje: "Error interno. Intente más tarde.",
		})
		return
	}

	status := http.StatusInternalServerError
	switch berr.Code {
	case billing.ErrNoEncontrado:
		status = http.StatusNotFound
	case billing.ErrEstadoInvalido, billing.ErrDeudaInsuficiente, billing.ErrPagoDuplicado:
		status = http.StatusConflict
	case billing.ErrPagoRechazado:
		status = http.StatusPaymentRequired
	case billing.ErrPasarela:
		status = http.StatusBadGateway
	case billing.ErrValidacion:
		status = http.StatusBadRequest
	}

	if status >= 500 {
		slog.Error("Error de motor", "code", berr.Code, "detalle", berr.Detalle)
	} else {
		slog.Info("Operación rechazada", "code", berr.Code, "detalle", berr.Detalle)
	}

	writeJSON(w, status, errorBody{Code: berr.Code, Mensaje: berr.Mensaje})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, billing.ErrValidacionf("Cuerpo de la petición inválido.", "decode: %v", err))
		return false
	}
	return true
}
