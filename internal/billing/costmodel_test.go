package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCostoDiario(t *testing.T) {
	tests := []struct {
		name       string
		precioHora string
		discoGb    int
		tipoDisco  TipoDisco
		conexion   TipoConexion
		want       string
	}{
		{
			name:       "ssd publica",
			precioHora: "0.05",
			discoGb:    100,
			tipoDisco:  DiscoSSD,
			conexion:   ConexionPublica,
			// 0.05*24 + 100*0.08/30 = 1.2 + 0.26666... -> 1.4667
			want: "1.4667",
		},
		{
			name:       "hdd publica",
			precioHora: "0.05",
			discoGb:    100,
			tipoDisco:  DiscoHDD,
			conexion:   ConexionPublica,
			// 1.2 + 100*0.045/30 = 1.35
			want: "1.35",
		},
		{
			name:       "hdd privada agrega recargo plano",
			precioHora: "0.05",
			discoGb:    100,
			tipoDisco:  DiscoHDD,
			conexion:   ConexionPrivada,
			want:       "2.55",
		},
		{
			name:       "sin disco solo computo",
			precioHora: "0.0833",
			discoGb:    0,
			tipoDisco:  DiscoSSD,
			conexion:   ConexionPublica,
			want:       "1.9992",
		},
		{
			name:       "redondeo a 4 decimales",
			precioHora: "0.0417",
			discoGb:    25,
			tipoDisco:  DiscoSSD,
			conexion:   ConexionPublica,
			// 1.0008 + 25*0.08/30 = 1.0008 + 0.066666... -> 1.0675 (redondeado)
			want: "1.0675",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CostoDiario(decimal.RequireFromString(tt.precioHora), tt.discoGb, tt.tipoDisco, tt.conexion)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"CostoDiario = %s, want %s", got, tt.want)
		})
	}
}

func TestCostoMensual(t *testing.T) {
	diario := decimal.RequireFromString("1.4667")
	assert.Equal(t, "44.00", CostoMensual(diario).StringFixed(2))

	diario = decimal.RequireFromString("2.00")
	assert.Equal(t, "60.00", CostoMensual(diario).StringFixed(2))
}

func TestCostoDiarioUsaDiscoNoMemoria(t *testing.T) {
	// Mismo tipo de instancia, distinto disco: el término de almacenamiento
	// tiene que seguir al disco provisionado.
	precio := decimal.RequireFromString("0.05")
	chico := CostoDiario(precio, 10, DiscoSSD, ConexionPublica)
	grande := CostoDiario(precio, 500, DiscoSSD, ConexionPublica)

	diff := grande.Sub(chico)
	// 1.2267 y 2.5333 ya redondeados a 4 decimales; la diferencia es 1.3066.
	assert.Equal(t, "1.3066", diff.StringFixed(4))
}
