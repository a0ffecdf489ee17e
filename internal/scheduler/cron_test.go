package scheduler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesusllicag/gesa-sub000/internal/billing"
	"github.com/jesusllicag/gesa-sub000/internal/config"
	"github.com/jesusllicag/gesa-sub000/internal/db"
	"github.com/jesusllicag/gesa-sub000/internal/notify"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func setupScheduler(t *testing.T) (*Scheduler, *db.Repository, *fixedClock) {
	t.Helper()

	repo, err := db.NewRepository(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cfg := &config.Config{PagoVenceDias: 7}
	clock := &fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}

	return NewScheduler(repo, notify.Noop{}, cfg, clock), repo, clock
}

func TestExpirePendingTransfers(t *testing.T) {
	s, repo, clock := setupScheduler(t)

	viejo := clock.now.AddDate(0, 0, -10)
	reciente := clock.now.AddDate(0, 0, -2)

	repo.DB().Create(&db.PagoMensual{
		ServidorID: 1, Anio: 2026, Mes: 2,
		Monto:     decimal.RequireFromString("60.00"),
		Estado:    billing.PagoPendiente.String(),
		MedioPago: billing.MedioTransferencia.String(),
		CreatedAt: viejo,
	})
	repo.DB().Create(&db.PagoMensual{
		ServidorID: 2, Anio: 2026, Mes: 3,
		Monto:     decimal.RequireFromString("60.00"),
		Estado:    billing.PagoPendiente.String(),
		MedioPago: billing.MedioTransferencia.String(),
		CreatedAt: reciente,
	})

	s.expirePendingTransfers()

	var vencidos, pendientes int64
	repo.DB().Model(&db.PagoMensual{}).Where("estado = ?", billing.PagoVencido.String()).Count(&vencidos)
	repo.DB().Model(&db.PagoMensual{}).Where("estado = ?", billing.PagoPendiente.String()).Count(&pendientes)

	if vencidos != 1 {
		t.Errorf("vencidos = %d, want 1", vencidos)
	}
	if pendientes != 1 {
		t.Errorf("pendientes = %d, want 1", pendientes)
	}
}

func TestExpireNoTocaPagados(t *testing.T) {
	s, repo, clock := setupScheduler(t)

	viejo := clock.now.AddDate(0, 0, -30)
	fecha := clock.now.AddDate(0, 0, -20)
	repo.DB().Create(&db.PagoMensual{
		ServidorID: 1, Anio: 2026, Mes: 1,
		Monto:     decimal.RequireFromString("60.00"),
		Estado:    billing.PagoPagado.String(),
		MedioPago: billing.MedioTransferencia.String(),
		FechaPago: &fecha,
		CreatedAt: viejo,
	})

	s.expirePendingTransfers()

	var pagados int64
	repo.DB().Model(&db.PagoMensual{}).Where("estado = ?", billing.PagoPagado.String()).Count(&pagados)
	if pagados != 1 {
		t.Errorf("pagados = %d, want 1", pagados)
	}
}
