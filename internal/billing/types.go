package billing

// Estado representa el estado de ciclo de vida de un servidor
type Estado string

const (
	EstadoPendienteAprobacion Estado = "pendiente_aprobacion"
	EstadoPending             Estado = "pending"
	EstadoRunning             Estado = "running"
	EstadoStopped             Estado = "stopped"
	EstadoTerminated          Estado = "terminated"
)

func (e Estado) String() string {
	return string(e)
}

func (e Estado) IsValid() bool {
	switch e {
	case EstadoPendienteAprobacion, EstadoPending, EstadoRunning, EstadoStopped, EstadoTerminated:
		return true
	}
	return false
}

func (e Estado) DisplayName() string {
	switch e {
	case EstadoPendienteAprobacion:
		return "pendiente de aprobación"
	case EstadoPending:
		return "aprobado, sin iniciar"
	case EstadoRunning:
		return "en ejecución"
	case EstadoStopped:
		return "detenido"
	case EstadoTerminated:
		return "dado de baja"
	}
	return "estado desconocido"
}

// PuedeIniciar indica si desde este estado se acepta el evento start
func (e Estado) PuedeIniciar() bool {
	return e == EstadoStopped || e == EstadoPending
}

// PuedeDetener indica si desde este estado se acepta el evento stop
func (e Estado) PuedeDetener() bool {
	return e == EstadoRunning
}

// PuedeTerminar indica si un admin puede dar de baja el servidor
func (e Estado) PuedeTerminar() bool {
	switch e {
	case EstadoPending, EstadoRunning, EstadoStopped:
		return true
	}
	return false
}

// PagoEstado representa el estado de un registro del libro de pagos
type PagoEstado string

const (
	PagoPendiente PagoEstado = "pendiente"
	PagoPagado    PagoEstado = "pagado"
	PagoVencido   PagoEstado = "vencido"
)

func (s PagoEstado) String() string {
	return string(s)
}

func (s PagoEstado) IsValid() bool {
	switch s {
	case PagoPendiente, PagoPagado, PagoVencido:
		return true
	}
	return false
}

func (s PagoEstado) DisplayName() string {
	switch s {
	case PagoPendiente:
		return "pendiente de validación"
	case PagoPagado:
		return "pagado"
	case PagoVencido:
		return "vencido"
	}
	return "estado desconocido"
}

// MedioPago representa el medio de pago elegido por el cliente
type MedioPago string

const (
	MedioTarjeta       MedioPago = "tarjeta"
	MedioTransferencia MedioPago = "transferencia"
)

func (m MedioPago) String() string {
	return string(m)
}

func (m MedioPago) IsValid() bool {
	switch m {
	case MedioTarjeta, MedioTransferencia:
		return true
	}
	return false
}

// TipoDisco representa la clase de almacenamiento provisionado
type TipoDisco string

const (
	DiscoSSD TipoDisco = "ssd"
	DiscoHDD TipoDisco = "hdd"
)

func (d TipoDisco) String() string {
	return string(d)
}

func (d TipoDisco) IsValid() bool {
	return d == DiscoSSD || d == DiscoHDD
}

// TipoConexion representa el tipo de conectividad del servidor
type TipoConexion string

const (
	ConexionPublica TipoConexion = "publica"
	ConexionPrivada TipoConexion = "privada"
)

func (c TipoConexion) String() string {
	return string(c)
}

func (c TipoConexion) IsValid() bool {
	return c == ConexionPublica || c == ConexionPrivada
}
