package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jesusllicag/gesa-sub000/internal/db"
	"github.com/jesusllicag/gesa-sub000/internal/gates/pasarela"
	"github.com/jesusllicag/gesa-sub000/internal/notify"
)

// Engine aplica las transiciones de ciclo de vida y las operaciones de
// cobro sobre un servidor. Cada operación serializa por servidor: toma el
// mutex del servidor, lee la hora una sola vez y escribe el libro de pagos
// y la marca de agua dentro de una misma transacción. El cargo a la
// pasarela se resuelve antes de cualquier escritura; si falla, no se muta
// nada.
type Engine struct {
	repo     *db.Repository
	gateway  pasarela.Gateway
	notifier notify.Notifier
	clock    Clock

	locks sync.Map // servidor ID -> *sync.Mutex
}

func NewEngine(repo *db.Repository, gateway pasarela.Gateway, notifier notify.Notifier, clock Clock) *Engine {
	return &Engine{
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
		clock:    clock,
	}
}

func (e *Engine) lockServidor(id uint) func() {
	mu, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// TarjetaRequest agrupa los datos de tarjeta que la pasarela necesita.
// IssuerID e identificación son opcionales.
type TarjetaRequest struct {
	Token                string
	MethodID             string
	Installments         int
	IssuerID             string
	IdentificationType   string
	IdentificationNumber string
}

func (r *TarjetaRequest) validate() *Error {
	if r == nil || r.Token == "" {
		return ErrValidacionf("Falta el token de la tarjeta.", "tarjeta sin token")
	}
	if r.MethodID == "" {
		return ErrValidacionf("Falta el medio de pago de la tarjeta.", "tarjeta sin payment_method_id")
	}
	return nil
}

// ---- Ciclo de vida ----

// Start pasa un servidor pending o stopped a running y abre el intervalo
// activo. La primera vez deja registrada la fecha de primera activación.
func (e *Engine) Start(ctx context.Context, clienteID, servidorID uint) (*db.Servidor, error) {
	defer e.lockServidor(servidorID)()

	s, err := e.loadOwned(clienteID, servidorID)
	if err != nil {
		return nil, err
	}

	if !Estado(s.Estado).PuedeIniciar() {
		return nil, ErrEstadoInvalidof(
			fmt.Sprintf("El servidor no se puede iniciar: está %s.", Estado(s.Estado).DisplayName()),
			"start rechazado para servidor %d en estado %s", s.ID, s.Estado,
		)
	}

	now := e.clock.Now()
	updates := map[string]interface{}{
		"estado":         EstadoRunning.String(),
		"latest_release": now,
	}
	if s.FirstActivatedAt == nil {
		updates["first_activated_at"] = now
	}

	if err := e.repo.DB().Model(s).Updates(updates).Error; err != nil {
		return nil, ErrBaseDatosf("start servidor %d: %v", s.ID, err)
	}

	s.Estado = EstadoRunning.String()
	s.LatestRelease = &now
	if s.FirstActivatedAt == nil {
		s.FirstActivatedAt = &now
	}

	slog.Info("Servidor iniciado", "servidor_id", s.ID, "cliente_id", clienteID)
	return s, nil
}

// Stop consolida el intervalo activo abierto en ActiveMs y cierra el intervalo.
func (e *Engine) Stop(ctx context.Context, clienteID, servidorID uint) (*db.Servidor, error) {
	defer e.lockServidor(servidorID)()

	s, err := e.loadOwned(clienteID, servidorID)
	if err != nil {
		return nil, err
	}

	if !Estado(s.Estado).PuedeDetener() {
		return nil, ErrEstadoInvalidof(
			fmt.Sprintf("El servidor no se puede detener: está %s.", Estado(s.Estado).DisplayName()),
			"stop rechazado para servidor %d en estado %s", s.ID, s.Estado,
		)
	}

	now := e.clock.Now()
	activeMs := CurrentActiveMs(s, now)

	if err := e.repo.DB().Model(s).Updates(map[string]interface{}{
		"estado":         EstadoStopped.String(),
		"active_ms":      activeMs,
		"latest_release": nil,
	}).Error; err != nil {
		return nil, ErrBaseDatosf("stop servidor %d: %v", s.ID, err)
	}

	s.Estado = EstadoStopped.String()
	s.ActiveMs = activeMs
	s.LatestRelease = nil

	slog.Info("Servidor detenido", "servidor_id", s.ID, "active_ms", activeMs)
	return s, nil
}

// ApproveRequest indica cómo paga el cliente el primer mes al aceptar el
// servidor que el admin le aprovisionó.
type ApproveRequest struct {
	Medio   MedioPago
	Tarjeta *TarjetaRequest
}

// Approve acepta un servidor pendiente de aprobación usando su token de un
// solo uso. Con tarjeta se cobra el primer mes de inmediato y la marca de
// agua arranca en 30 días; con transferencia queda un pago pendiente y la
// marca de agua en cero.
func (e *Engine) Approve(ctx context.Context, token string, req ApproveRequest) (*db.Servidor, error) {
	if !req.Medio.IsValid() {
		return nil, ErrValidacionf("Medio de pago inválido.", "medio_pago %q", req.Medio)
	}

	s, err := e.loadByToken(token)
	if err != nil {
		return nil, err
	}

	unlock := e.lockServidor(s.ID)
	defer unlock()

	// Releer bajo el lock: el token es de un solo uso y pudo haberse
	// consumido mientras esperábamos.
	s, err = e.loadByToken(token)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	monto := CostoMensual(s.CostoDiario)

	if req.Medio == MedioTarjeta {
		if verr := req.Tarjeta.validate(); verr != nil {
			return nil, verr
		}

		res, cerr := e.charge(ctx, req.Tarjeta, monto, fmt.Sprintf("Primer mes servidor %s", s.Nombre))
		if cerr != nil {
			return nil, cerr
		}

		err = e.repo.DB().Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(s).Updates(map[string]interface{}{
				"estado":           EstadoPending.String(),
				"token_aprobacion": nil,
				"billed_active_ms": int64(DiasPorMes) * MsPorDia,
			}).Error; err != nil {
				return err
			}
			return tx.Create(&db.PagoMensual{
				ServidorID:     s.ID,
				Anio:           now.Year(),
				Mes:            int(now.Month()),
				Monto:          monto,
				Estado:         PagoPagado.String(),
				MedioPago:      MedioTarjeta.String(),
				FechaPago:      &now,
				ReferenciaPago: res.ID,
				Observaciones:  "Primer mes pagado con tarjeta al aprobar",
			}).Error
		})
		if err != nil {
			return nil, ErrBaseDatosf("approve servidor %d: %v", s.ID, err)
		}

		s.BilledActiveMs = int64(DiasPorMes) * MsPorDia

		e.notifier.NotifyAdmin(fmt.Sprintf("✅ Servidor #%d %q aprobado; primer mes %s cobrado con tarjeta (ref %s).",
			s.ID, s.Nombre, monto.StringFixed(2), res.ID))
	} else {
		err = e.repo.DB().Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(s).Updates(map[string]interface{}{
				"estado":           EstadoPending.String(),
				"token_aprobacion": nil,
				"billed_active_ms": int64(0),
			}).Error; err != nil {
				return err
			}
			return tx.Create(&db.PagoMensual{
				ServidorID:    s.ID,
				Anio:          now.Year(),
				Mes:           int(now.Month()),
				Monto:         monto,
				Estado:        PagoPendiente.String(),
				MedioPago:     MedioTransferencia.String(),
				Observaciones: "Primer mes por transferencia, pendiente de validación",
			}).Error
		})
		if err != nil {
			return nil, ErrBaseDatosf("approve servidor %d: %v", s.ID, err)
		}

		s.BilledActiveMs = 0

		e.notifier.NotifyAdmin(fmt.Sprintf("⏳ Servidor #%d %q aprobado; primer mes %s por transferencia pendiente de validación.",
			s.ID, s.Nombre, monto.StringFixed(2)))
	}

	s.Estado = EstadoPending.String()
	s.TokenAprobacion = nil

	slog.Info("Servidor aprobado", "servidor_id", s.ID, "medio_pago", req.Medio, "monto", monto)
	return s, nil
}

// Reject rechaza un servidor pendiente de aprobación y lo da de baja.
func (e *Engine) Reject(ctx context.Context, token string) error {
	s, err := e.loadByToken(token)
	if err != nil {
		return err
	}

	unlock := e.lockServidor(s.ID)
	defer unlock()

	s, err = e.loadByToken(token)
	if err != nil {
		return err
	}

	err = e.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(s).Updates(map[string]interface{}{
			"estado":           EstadoTerminated.String(),
			"token_aprobacion": nil,
		}).Error; err != nil {
			return err
		}
		return tx.Delete(s).Error
	})
	if err != nil {
		return ErrBaseDatosf("reject servidor %d: %v", s.ID, err)
	}

	e.notifier.NotifyAdmin(fmt.Sprintf("❌ El cliente rechazó el servidor #%d %q; dado de baja.", s.ID, s.Nombre))
	slog.Info("Servidor rechazado por el cliente", "servidor_id", s.ID)
	return nil
}

// Terminate da de baja un servidor por decisión del admin. Si estaba en
// ejecución, consolida antes el intervalo activo para que el historial de
// consumo quede cerrado.
func (e *Engine) Terminate(ctx context.Context, servidorID uint) error {
	defer e.lockServidor(servidorID)()

	var s db.Servidor
	if err := e.repo.DB().First(&s, servidorID).Error; err != nil {
		return asLoadError(err, servidorID)
	}

	if !Estado(s.Estado).PuedeTerminar() {
		return ErrEstadoInvalidof(
			fmt.Sprintf("El servidor no se puede dar de baja: está %s.", Estado(s.Estado).DisplayName()),
			"terminate rechazado para servidor %d en estado %s", s.ID, s.Estado,
		)
	}

	now := e.clock.Now()
	activeMs := CurrentActiveMs(&s, now)

	err := e.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&s).Updates(map[string]interface{}{
			"estado":         EstadoTerminated.String(),
			"active_ms":      activeMs,
			"latest_release": nil,
		}).Error; err != nil {
			return err
		}
		return tx.Delete(&s).Error
	})
	if err != nil {
		return ErrBaseDatosf("terminate servidor %d: %v", s.ID, err)
	}

	slog.Info("Servidor dado de baja por admin", "servidor_id", s.ID)
	return nil
}

// ---- Cobros ----

// PayAdvance cobra un bloque adelantado de 30 días. Con tarjeta avanza la
// marca de agua de inmediato; con transferencia solo deja el pago pendiente
// y la marca avanza recién cuando el admin lo valida.
func (e *Engine) PayAdvance(ctx context.Context, clienteID, servidorID uint, medio MedioPago, tarjeta *TarjetaRequest) (*db.PagoMensual, error) {
	if !medio.IsValid() {
		return nil, ErrValidacionf("Medio de pago inválido.", "medio_pago %q", medio)
	}

	defer e.lockServidor(servidorID)()

	s, err := e.loadOwned(clienteID, servidorID)
	if err != nil {
		return nil, err
	}
	if Estado(s.Estado) == EstadoPendienteAprobacion {
		return nil, ErrEstadoInvalidof(
			"El servidor todavía no fue aprobado.",
			"mensualidad rechazada para servidor %d en estado %s", s.ID, s.Estado,
		)
	}

	now := e.clock.Now()
	monto := CostoMensual(s.CostoDiario)

	if medio == MedioTarjeta {
		if verr := tarjeta.validate(); verr != nil {
			return nil, verr
		}

		res, cerr := e.charge(ctx, tarjeta, monto, fmt.Sprintf("Mensualidad servidor %s", s.Nombre))
		if cerr != nil {
			return nil, cerr
		}

		pago := &db.PagoMensual{
			ServidorID:     s.ID,
			Anio:           now.Year(),
			Mes:            int(now.Month()),
			Monto:          monto,
			Estado:         PagoPagado.String(),
			MedioPago:      MedioTarjeta.String(),
			FechaPago:      &now,
			ReferenciaPago: res.ID,
			Observaciones:  "Mensualidad adelantada con tarjeta",
		}
		err = e.repo.DB().Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(s).Update("billed_active_ms", s.BilledActiveMs+int64(DiasPorMes)*MsPorDia).Error; err != nil {
				return err
			}
			return tx.Create(pago).Error
		})
		if err != nil {
			return nil, ErrBaseDatosf("mensualidad servidor %d: %v", s.ID, err)
		}

		slog.Info("Mensualidad cobrada con tarjeta", "servidor_id", s.ID, "monto", monto, "referencia", res.ID)
		return pago, nil
	}

	if err := e.checkSinPendiente(s.ID); err != nil {
		return nil, err
	}

	pago := &db.PagoMensual{
		ServidorID:    s.ID,
		Anio:          now.Year(),
		Mes:           int(now.Month()),
		Monto:         monto,
		Estado:        PagoPendiente.String(),
		MedioPago:     MedioTransferencia.String(),
		Observaciones: "Mensualidad adelantada por transferencia, pendiente de validación",
	}
	if err := e.repo.DB().Create(pago).Error; err != nil {
		return nil, ErrBaseDatosf("mensualidad servidor %d: %v", s.ID, err)
	}

	e.notifier.NotifyAdmin(fmt.Sprintf("⏳ Transferencia pendiente: mensualidad de %s para servidor #%d %q (pago #%d).",
		monto.StringFixed(2), s.ID, s.Nombre, pago.ID))
	slog.Info("Mensualidad por transferencia registrada", "servidor_id", s.ID, "pago_id", pago.ID)
	return pago, nil
}

// SettleDebt liquida con tarjeta la deuda acumulada más allá de la marca de
// agua. Exige al menos un día completo sin facturar y nunca cobra más de 30
// días en una sola transacción; el excedente queda para la siguiente.
func (e *Engine) SettleDebt(ctx context.Context, clienteID, servidorID uint, tarjeta *TarjetaRequest) (*db.PagoMensual, error) {
	if verr := tarjeta.validate(); verr != nil {
		return nil, verr
	}

	defer e.lockServidor(servidorID)()

	s, err := e.loadOwned(clienteID, servidorID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	dias, monto, derr := e.deudaCobrable(s, now)
	if derr != nil {
		return nil, derr
	}

	res, cerr := e.charge(ctx, tarjeta, monto, fmt.Sprintf("Deuda servidor %s", s.Nombre))
	if cerr != nil {
		return nil, cerr
	}

	pago := &db.PagoMensual{
		ServidorID:     s.ID,
		Anio:           now.Year(),
		Mes:            int(now.Month()),
		Monto:          monto,
		Estado:         PagoPagado.String(),
		MedioPago:      MedioTarjeta.String(),
		FechaPago:      &now,
		ReferenciaPago: res.ID,
		Observaciones:  fmt.Sprintf("Liquidación de deuda: %s días", dias.StringFixed(4)),
	}
	err = e.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(s).Update("billed_active_ms", s.BilledActiveMs+CreditMs(dias)).Error; err != nil {
			return err
		}
		return tx.Create(pago).Error
	})
	if err != nil {
		return nil, ErrBaseDatosf("liquidación servidor %d: %v", s.ID, err)
	}

	slog.Info("Deuda liquidada con tarjeta", "servidor_id", s.ID, "dias", dias, "monto", monto)
	return pago, nil
}

// SettleDebtTransfer registra una transferencia pendiente por la deuda
// actual. El monto queda fijado con la foto de la deuda al momento del
// pedido; la marca de agua no se mueve hasta que el admin valida.
func (e *Engine) SettleDebtTransfer(ctx context.Context, clienteID, servidorID uint) (*db.PagoMensual, error) {
	defer e.lockServidor(servidorID)()

	s, err := e.loadOwned(clienteID, servidorID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	dias, monto, derr := e.deudaCobrable(s, now)
	if derr != nil {
		return nil, derr
	}

	if err := e.checkSinPendiente(s.ID); err != nil {
		return nil, err
	}

	pago := &db.PagoMensual{
		ServidorID:    s.ID,
		Anio:          now.Year(),
		Mes:           int(now.Month()),
		Monto:         monto,
		Estado:        PagoPendiente.String(),
		MedioPago:     MedioTransferencia.String(),
		Observaciones: fmt.Sprintf("Liquidación de deuda por transferencia: %s días", dias.StringFixed(4)),
	}
	if err := e.repo.DB().Create(pago).Error; err != nil {
		return nil, ErrBaseDatosf("liquidación servidor %d: %v", s.ID, err)
	}

	e.notifier.NotifyAdmin(fmt.Sprintf("⏳ Transferencia pendiente: deuda de %s para servidor #%d %q (pago #%d).",
		monto.StringFixed(2), s.ID, s.Nombre, pago.ID))
	slog.Info("Liquidación por transferencia registrada", "servidor_id", s.ID, "pago_id", pago.ID)
	return pago, nil
}

// ValidatePago confirma una transferencia pendiente. El crédito de tiempo
// se deriva del monto registrado y la tarifa diaria del servidor, no del
// tiempo transcurrido: el monto quedó fijado al pedirlo y así no se
// desfasa si la tarifa cambió entre el pedido y la validación.
func (e *Engine) ValidatePago(ctx context.Context, servidorID, pagoID uint, observaciones string) (*db.PagoMensual, error) {
	defer e.lockServidor(servidorID)()

	var pago db.PagoMensual
	err := e.repo.DB().Where("id = ? AND servidor_id = ?", pagoID, servidorID).First(&pago).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNoEncontradof("pago %d no pertenece al servidor %d", pagoID, servidorID)
		}
		return nil, ErrBaseDatosf("cargar pago %d: %v", pagoID, err)
	}

	if PagoEstado(pago.Estado) != PagoPendiente {
		return nil, ErrEstadoInvalidof(
			fmt.Sprintf("El pago ya está %s.", PagoEstado(pago.Estado).DisplayName()),
			"validación rechazada para pago %d en estado %s", pago.ID, pago.Estado,
		)
	}

	// Los servidores dados de baja conservan su historial; una transferencia
	// hecha antes de la baja todavía se puede validar.
	var s db.Servidor
	if err := e.repo.DB().Unscoped().First(&s, servidorID).Error; err != nil {
		return nil, asLoadError(err, servidorID)
	}

	now := e.clock.Now()
	creditMs := CreditMs(pago.Monto.Div(s.CostoDiario))

	err = e.repo.DB().Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"estado":     PagoPagado.String(),
			"fecha_pago": now,
		}
		if observaciones != "" {
			updates["observaciones"] = observaciones
		}
		if err := tx.Model(&pago).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Unscoped().Model(&s).Update("billed_active_ms", s.BilledActiveMs+creditMs).Error
	})
	if err != nil {
		return nil, ErrBaseDatosf("validar pago %d: %v", pago.ID, err)
	}

	pago.Estado = PagoPagado.String()
	pago.FechaPago = &now
	if observaciones != "" {
		pago.Observaciones = observaciones
	}

	e.notifier.NotifyAdmin(fmt.Sprintf("✅ Pago #%d de %s validado para servidor #%d.",
		pago.ID, pago.Monto.StringFixed(2), s.ID))
	slog.Info("Pago validado", "pago_id", pago.ID, "servidor_id", s.ID, "credit_ms", creditMs)
	return &pago, nil
}

// ---- Aprovisionamiento y catálogo ----

type ProvisionRequest struct {
	ClienteID       uint
	TipoInstanciaID uint
	Nombre          string
	RamGb           int
	DiscoGb         int
	TipoDisco       TipoDisco
	TipoConexion    TipoConexion
}

// Provision crea un servidor para un cliente en pendiente_aprobacion, con
// la tarifa diaria fijada en este momento y un token de aprobación de un
// solo uso.
func (e *Engine) Provision(ctx context.Context, req ProvisionRequest) (*db.Servidor, error) {
	if req.Nombre == "" {
		return nil, ErrValidacionf("Falta el nombre del servidor.", "provision sin nombre")
	}
	if !req.TipoDisco.IsValid() {
		return nil, ErrValidacionf("Tipo de disco inválido.", "tipo_disco %q", req.TipoDisco)
	}
	if !req.TipoConexion.IsValid() {
		return nil, ErrValidacionf("Tipo de conexión inválido.", "tipo_conexion %q", req.TipoConexion)
	}
	if req.DiscoGb <= 0 || req.RamGb <= 0 {
		return nil, ErrValidacionf("RAM y disco deben ser mayores a cero.", "ram %d disco %d", req.RamGb, req.DiscoGb)
	}

	var cliente db.Cliente
	if err := e.repo.DB().First(&cliente, req.ClienteID).Error; err != nil {
		return nil, ErrValidacionf("El cliente no existe.", "cliente %d: %v", req.ClienteID, err)
	}

	var tipo db.TipoInstancia
	if err := e.repo.DB().First(&tipo, req.TipoInstanciaID).Error; err != nil {
		return nil, ErrValidacionf("El tipo de instancia no existe.", "tipo %d: %v", req.TipoInstanciaID, err)
	}

	token := uuid.NewString()
	s := &db.Servidor{
		Nombre:          req.Nombre,
		ClienteID:       &req.ClienteID,
		TipoInstanciaID: tipo.ID,
		RamGb:           req.RamGb,
		DiscoGb:         req.DiscoGb,
		TipoDisco:       req.TipoDisco.String(),
		TipoConexion:    req.TipoConexion.String(),
		Estado:          EstadoPendienteAprobacion.String(),
		CostoDiario:     CostoDiario(tipo.PrecioHora, req.DiscoGb, req.TipoDisco, req.TipoConexion),
		TokenAprobacion: &token,
	}
	if err := e.repo.DB().Create(s).Error; err != nil {
		return nil, ErrBaseDatosf("provision servidor: %v", err)
	}

	slog.Info("Servidor aprovisionado", "servidor_id", s.ID, "cliente_id", req.ClienteID, "costo_diario", s.CostoDiario)
	return s, nil
}

// UpdateSpecs aplica una ampliación de RAM o disco. La tarifa diaria
// quedó fijada al aprobar y solo se recalcula si el admin lo pide
// explícitamente con recalcularCosto.
func (e *Engine) UpdateSpecs(ctx context.Context, servidorID uint, ramGb, discoGb *int, recalcularCosto bool) (*db.Servidor, error) {
	defer e.lockServidor(servidorID)()

	var s db.Servidor
	if err := e.repo.DB().First(&s, servidorID).Error; err != nil {
		return nil, asLoadError(err, servidorID)
	}

	updates := map[string]interface{}{}
	if ramGb != nil {
		if *ramGb < s.RamGb {
			return nil, ErrValidacionf("La RAM solo puede ampliarse.", "ram %d -> %d", s.RamGb, *ramGb)
		}
		updates["ram_gb"] = *ramGb
		s.RamGb = *ramGb
	}
	if discoGb != nil {
		if *discoGb < s.DiscoGb {
			return nil, ErrValidacionf("El disco solo puede ampliarse.", "disco %d -> %d", s.DiscoGb, *discoGb)
		}
		updates["disco_gb"] = *discoGb
		s.DiscoGb = *discoGb
	}

	if recalcularCosto {
		var tipo db.TipoInstancia
		if err := e.repo.DB().First(&tipo, s.TipoInstanciaID).Error; err != nil {
			return nil, ErrBaseDatosf("cargar tipo %d: %v", s.TipoInstanciaID, err)
		}
		s.CostoDiario = CostoDiario(tipo.PrecioHora, s.DiscoGb, TipoDisco(s.TipoDisco), TipoConexion(s.TipoConexion))
		updates["costo_diario"] = s.CostoDiario
	}

	if len(updates) == 0 {
		return &s, nil
	}

	if err := e.repo.DB().Model(&s).Updates(updates).Error; err != nil {
		return nil, ErrBaseDatosf("update specs servidor %d: %v", s.ID, err)
	}

	slog.Info("Especificaciones actualizadas", "servidor_id", s.ID, "recalculo_costo", recalcularCosto)
	return &s, nil
}

// Quote calcula la tarifa diaria y mensual para una configuración sin
// materializar un servidor.
func (e *Engine) Quote(tipoInstanciaID uint, discoGb int, tipoDisco TipoDisco, conexion TipoConexion) (diario, mensual decimal.Decimal, err error) {
	if !tipoDisco.IsValid() || !conexion.IsValid() || discoGb <= 0 {
		return decimal.Zero, decimal.Zero, ErrValidacionf("Parámetros de cotización inválidos.",
			"disco %d tipo_disco %q conexion %q", discoGb, tipoDisco, conexion)
	}

	var tipo db.TipoInstancia
	if err := e.repo.DB().First(&tipo, tipoInstanciaID).Error; err != nil {
		return decimal.Zero, decimal.Zero, ErrValidacionf("El tipo de instancia no existe.", "tipo %d: %v", tipoInstanciaID, err)
	}

	diario = CostoDiario(tipo.PrecioHora, discoGb, tipoDisco, conexion)
	return diario, CostoMensual(diario), nil
}

// ---- Helpers ----

func (e *Engine) loadOwned(clienteID, servidorID uint) (*db.Servidor, error) {
	var s db.Servidor
	err := e.repo.DB().Where("id = ? AND cliente_id = ?", servidorID, clienteID).First(&s).Error
	if err != nil {
		return nil, asLoadError(err, servidorID)
	}
	return &s, nil
}

func (e *Engine) loadByToken(token string) (*db.Servidor, error) {
	if token == "" {
		return nil, ErrNoEncontradof("token vacío")
	}
	var s db.Servidor
	err := e.repo.DB().
		Where("token_aprobacion = ? AND estado = ?", token, EstadoPendienteAprobacion.String()).
		First(&s).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// Token inválido, vencido o de otro cliente: misma respuesta
			// para no revelar existencia.
			return nil, ErrNoEncontradof("token de aprobación no válido")
		}
		return nil, ErrBaseDatosf("cargar servidor por token: %v", err)
	}
	return &s, nil
}

// checkSinPendiente hace valer que haya a lo sumo una transferencia
// pendiente por servidor.
func (e *Engine) checkSinPendiente(servidorID uint) error {
	var count int64
	err := e.repo.DB().Model(&db.PagoMensual{}).
		Where("servidor_id = ? AND estado = ?", servidorID, PagoPendiente.String()).
		Count(&count).Error
	if err != nil {
		return ErrBaseDatosf("contar pagos pendientes de servidor %d: %v", servidorID, err)
	}
	if count > 0 {
		return ErrPagoDuplicadof("servidor %d ya tiene %d pago(s) pendiente(s)", servidorID, count)
	}
	return nil
}

// deudaCobrable valida el mínimo de un día y devuelve los días a cobrar
// (con tope de 30) y el monto al centavo.
func (e *Engine) deudaCobrable(s *db.Servidor, now time.Time) (decimal.Decimal, decimal.Decimal, error) {
	debtMs := PendingDebtMs(s, now)
	if debtMs < MsPorDia {
		return decimal.Zero, decimal.Zero, ErrDeudaInsuficientef(
			"servidor %d tiene %d ms de deuda, mínimo %d", s.ID, debtMs, MsPorDia)
	}

	dias := ChargeableDays(s, now)
	return dias, dias.Mul(s.CostoDiario).Round(2), nil
}

func (e *Engine) charge(ctx context.Context, tarjeta *TarjetaRequest, monto decimal.Decimal, descripcion string) (*pasarela.ChargeResult, error) {
	installments := tarjeta.Installments
	if installments <= 0 {
		installments = 1
	}

	res, err := e.gateway.Charge(ctx, &pasarela.ChargeRequest{
		Monto:                monto,
		Descripcion:          descripcion,
		Token:                tarjeta.Token,
		Installments:         installments,
		MethodID:             tarjeta.MethodID,
		IssuerID:             tarjeta.IssuerID,
		IdentificationType:   tarjeta.IdentificationType,
		IdentificationNumber: tarjeta.IdentificationNumber,
	})
	if err != nil {
		return nil, ErrPasarelaf("charge %s: %v", monto, err)
	}
	if !res.Accepted() {
		motivo := res.StatusDetail
		if motivo == "" {
			motivo = res.Status
		}
		return nil, ErrPagoRechazadof(motivo)
	}
	return res, nil
}

func asLoadError(err error, servidorID uint) error {
	if err == gorm.ErrRecordNotFound {
		return ErrNoEncontradof("servidor %d", servidorID)
	}
	return ErrBaseDatosf("cargar servidor %d: %v", servidorID, err)
}
