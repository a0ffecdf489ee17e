package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cliente - empresa o persona que alquila servidores
type Cliente struct {
	ID          uint   `gorm:"primaryKey"`
	RazonSocial string `gorm:"not null"`
	Email       string `gorm:"uniqueIndex;not null"`
	Telefono    string
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

// TipoInstancia - catálogo de tipos de instancia
type TipoInstancia struct {
	ID         uint            `gorm:"primaryKey"`
	Nombre     string          `gorm:"uniqueIndex;not null"`
	PrecioHora decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	MemoriaGb  int             `gorm:"not null"`
	Vcpus      int             `gorm:"not null"`
	Archived   bool            `gorm:"default:false"`
}

// Servidor - servidor alquilado; acumula tiempo activo facturable.
//
// ActiveMs guarda solo los intervalos ya cerrados; el intervalo abierto
// se deriva de LatestRelease mientras Estado sea "running".
// BilledActiveMs es la marca de agua de tiempo ya pagado y nunca retrocede.
type Servidor struct {
	ID               uint            `gorm:"primaryKey"`
	Nombre           string          `gorm:"not null"`
	ClienteID        *uint           `gorm:"index"`
	TipoInstanciaID  uint            `gorm:"not null"`
	RamGb            int             `gorm:"not null"`
	DiscoGb          int             `gorm:"not null"`
	TipoDisco        string          `gorm:"not null;check:tipo_disco IN ('ssd','hdd')"`
	TipoConexion     string          `gorm:"not null;check:tipo_conexion IN ('publica','privada')"`
	Estado           string          `gorm:"not null;index"`
	CostoDiario      decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	ActiveMs         int64           `gorm:"not null;default:0"`
	LatestRelease    *time.Time
	BilledActiveMs   int64 `gorm:"not null;default:0"`
	FirstActivatedAt *time.Time
	TokenAprobacion  *string `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`

	// Relations
	Cliente       *Cliente      `gorm:"foreignKey:ClienteID"`
	TipoInstancia TipoInstancia `gorm:"foreignKey:TipoInstanciaID"`
	Pagos         []PagoMensual `gorm:"foreignKey:ServidorID"`
}

// PagoMensual - libro de pagos; solo se agrega, nunca se borra.
// Anio/Mes son etiqueta contable del período, no entran en el cálculo del monto.
type PagoMensual struct {
	ID             uint            `gorm:"primaryKey"`
	ServidorID     uint            `gorm:"index;not null"`
	Anio           int             `gorm:"not null"`
	Mes            int             `gorm:"not null"`
	Monto          decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Estado         string          `gorm:"not null;index;check:estado IN ('pendiente','pagado','vencido')"`
	MedioPago      string          `gorm:"not null;check:medio_pago IN ('tarjeta','transferencia')"`
	FechaPago      *time.Time
	ReferenciaPago string
	Observaciones  string
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP"`

	// Relations
	Servidor *Servidor `gorm:"foreignKey:ServidorID"`
}
