package billing

import (
	"time"

	"github.com/jesusllicag/gesa-sub000/internal/db"
	"github.com/shopspring/decimal"
)

// CurrentActiveMs devuelve el tiempo activo total del servidor: los
// intervalos ya cerrados más el intervalo abierto si está en ejecución.
// Nunca muta ActiveMs; el intervalo abierto solo se consolida al detener
// el servidor.
func CurrentActiveMs(s *db.Servidor, now time.Time) int64 {
	total := s.ActiveMs
	if Estado(s.Estado) == EstadoRunning && s.LatestRelease != nil {
		elapsed := now.Sub(*s.LatestRelease).Milliseconds()
		// Con desfase de reloj el intervalo podría salir negativo; se trata como 0.
		if elapsed > 0 {
			total += elapsed
		}
	}
	return total
}

// PendingDebtMs devuelve el tiempo activo aún no cubierto por la marca de
// agua facturada. Nunca negativo.
func PendingDebtMs(s *db.Servidor, now time.Time) int64 {
	debt := CurrentActiveMs(s, now) - s.BilledActiveMs
	if debt < 0 {
		return 0
	}
	return debt
}

// PendingDebtDays expresa la deuda en días, con fracción.
func PendingDebtDays(s *db.Servidor, now time.Time) decimal.Decimal {
	return decimal.NewFromInt(PendingDebtMs(s, now)).Div(msPorDia)
}

// ChargeableDays acota la deuda cobrable de una sola transacción a 30 días.
// Lo que exceda la ventana queda pendiente para una transacción posterior.
func ChargeableDays(s *db.Servidor, now time.Time) decimal.Decimal {
	days := PendingDebtDays(s, now)
	if days.GreaterThan(diasPorMes) {
		return diasPorMes
	}
	return days
}

// CreditMs convierte días cobrados en milisegundos para avanzar la marca
// de agua facturada.
func CreditMs(days decimal.Decimal) int64 {
	return days.Mul(msPorDia).Round(0).IntPart()
}
