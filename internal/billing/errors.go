package billing

import "fmt"

// Códigos de error del motor de facturación
const (
	ErrEstadoInvalido    = "ESTADO_INVALIDO"
	ErrNoEncontrado      = "NO_ENCONTRADO"
	ErrDeudaInsuficiente = "DEUDA_INSUFICIENTE"
	ErrPagoDuplicado     = "PAGO_PENDIENTE_DUPLICADO"
	ErrPagoRechazado     = "PAGO_RECHAZADO"
	ErrPasarela          = "PASARELA_NO_DISPONIBLE"
	ErrValidacion        = "VALIDACION"
	ErrBaseDatos         = "BASE_DATOS"
)

// Error representa un error del motor con código y mensaje para el usuario.
// Mensaje se muestra al cliente; Detalle queda para los logs.
type Error struct {
	Code    string
	Mensaje string
	Detalle string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Mensaje, e.Detalle)
}

func NewError(code, mensaje, detalle string) *Error {
	return &Error{Code: code, Mensaje: mensaje, Detalle: detalle}
}

func ErrEstadoInvalidof(mensaje, detalle string, args ...interface{}) *Error {
	return NewError(ErrEstadoInvalido, mensaje, fmt.Sprintf(detalle, args...))
}

func ErrNoEncontradof(detalle string, args ...interface{}) *Error {
	return NewError(
		ErrNoEncontrado,
		"Servidor no encontrado.",
		fmt.Sprintf(detalle, args...),
	)
}

func ErrDeudaInsuficientef(detalle string, args ...interface{}) *Error {
	return NewError(
		ErrDeudaInsuficiente,
		"No hay al menos un día completo de uso sin facturar.",
		fmt.Sprintf(detalle, args...),
	)
}

func ErrPagoDuplicadof(detalle string, args ...interface{}) *Error {
	return NewError(
		ErrPagoDuplicado,
		"Ya existe un pago por transferencia pendiente de validación para este servidor.",
		fmt.Sprintf(detalle, args...),
	)
}

func ErrPagoRechazadof(motivo string) *Error {
	return NewError(
		ErrPagoRechazado,
		"El pago fue rechazado: "+motivo,
		motivo,
	)
}

func ErrPasarelaf(detalle string, args ...interface{}) *Error {
	return NewError(
		ErrPasarela,
		"No se pudo contactar a la pasarela de pagos. Intente nuevamente.",
		fmt.Sprintf(detalle, args...),
	)
}

func ErrValidacionf(mensaje, detalle string, args ...interface{}) *Error {
	return NewError(ErrValidacion, mensaje, fmt.Sprintf(detalle, args...))
}

func ErrBaseDatosf(detalle string, args ...interface{}) *Error {
	return NewError(
		ErrBaseDatos,
		"Error interno. Intente más tarde.",
		fmt.Sprintf(detalle, args...),
	)
}
