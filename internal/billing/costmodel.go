package billing

import "github.com/shopspring/decimal"

const (
	// DiasPorMes - las proyecciones de cobro usan ventanas móviles de 30 días,
	// no meses calendario.
	DiasPorMes = 30

	// MsPorDia - milisegundos en un día
	MsPorDia int64 = 86_400_000
)

var (
	horasPorDia = decimal.NewFromInt(24)
	diasPorMes  = decimal.NewFromInt(DiasPorMes)
	msPorDia    = decimal.NewFromInt(MsPorDia)

	// Tarifas mensuales por GB de almacenamiento, se prorratean a diario.
	tarifaMensualGbSSD = decimal.RequireFromString("0.08")
	tarifaMensualGbHDD = decimal.RequireFromString("0.045")

	recargoDiarioPrivada = decimal.RequireFromString("1.20")
)

// CostoDiario calcula el costo diario de un servidor a partir del precio por
// hora del tipo de instancia, el disco provisionado y el tipo de conexión.
//
// El término de almacenamiento se calcula siempre sobre el tamaño de disco
// solicitado en GB, nunca sobre la memoria del tipo de instancia. El
// resultado se redondea a 4 decimales; la moneda se factura a 2 decimales
// pero la tarifa diaria conserva precisión extra para que la proyección a
// 30 días no acumule error.
func CostoDiario(precioHora decimal.Decimal, discoGb int, tipoDisco TipoDisco, conexion TipoConexion) decimal.Decimal {
	costo := precioHora.Mul(horasPorDia)

	tarifaGb := tarifaMensualGbHDD
	if tipoDisco == DiscoSSD {
		tarifaGb = tarifaMensualGbSSD
	}
	costo = costo.Add(decimal.NewFromInt(int64(discoGb)).Mul(tarifaGb).Div(diasPorMes))

	if conexion == ConexionPrivada {
		costo = costo.Add(recargoDiarioPrivada)
	}

	return costo.Round(4)
}

// CostoMensual proyecta la tarifa diaria a la ventana de 30 días y redondea
// al centavo, que es el monto que efectivamente se cobra.
func CostoMensual(costoDiario decimal.Decimal) decimal.Decimal {
	return costoDiario.Mul(diasPorMes).Round(2)
}
