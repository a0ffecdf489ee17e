package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/jesusllicag/gesa-sub000/internal/billing"
	"github.com/jesusllicag/gesa-sub000/internal/config"
	"github.com/jesusllicag/gesa-sub000/internal/db"
	"github.com/jesusllicag/gesa-sub000/internal/notify"
)

type Scheduler struct {
	cron     *cron.Cron
	repo     *db.Repository
	notifier notify.Notifier
	cfg      *config.Config
	clock    billing.Clock
}

func NewScheduler(repo *db.Repository, notifier notify.Notifier, cfg *config.Config, clock billing.Clock) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		clock:    clock,
	}
}

func (s *Scheduler) Start() error {
	// Vencimiento de transferencias pendientes (diario a las 00:30)
	if _, err := s.cron.AddFunc("30 0 * * *", s.expirePendingTransfers); err != nil {
		return fmt.Errorf("failed to add pending transfers job: %w", err)
	}

	// Avisos de deuda alta (cada 6 horas)
	if _, err := s.cron.AddFunc("0 */6 * * *", s.reportHighDebt); err != nil {
		return fmt.Errorf("failed to add debt report job: %w", err)
	}

	s.cron.Start()
	slog.Info("Cron scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("Cron scheduler stopped")
}

// expirePendingTransfers marca como vencidas las transferencias que llevan
// más de PagoVenceDias sin validar. El libro de pagos nunca se borra; el
// cliente puede volver a pedir la liquidación y generar un pago nuevo.
func (s *Scheduler) expirePendingTransfers() {
	limite := s.clock.Now().AddDate(0, 0, -s.cfg.PagoVenceDias)

	var pagos []db.PagoMensual
	result := s.repo.DB().
		Where("estado = ? AND created_at < ?", billing.PagoPendiente.String(), limite).
		Find(&pagos)
	if result.Error != nil {
		slog.Error("Error buscando transferencias vencidas", "error", result.Error)
		return
	}

	if len(pagos) == 0 {
		return
	}

	vencidos := 0
	for _, pago := range pagos {
		err := s.repo.DB().Model(&pago).Update("estado", billing.PagoVencido.String()).Error
		if err != nil {
			slog.Error("No se pudo vencer el pago", "pago_id", pago.ID, "error", err)
			continue
		}
		vencidos++
	}

	slog.Info("Transferencias pendientes vencidas", "vencidos", vencidos)
	s.notifier.NotifyAdmin(fmt.Sprintf("🕒 Barrido de transferencias: %d pago(s) vencido(s) tras %d días sin validar.",
		vencidos, s.cfg.PagoVenceDias))
}

// reportHighDebt avisa a los admins qué servidores acumulan más de 25 días
// de uso sin facturar, antes de que la deuda pegue contra el tope de 30.
func (s *Scheduler) reportHighDebt() {
	now := s.clock.Now()
	umbralDias := 25

	var servidores []db.Servidor
	result := s.repo.DB().
		Where("estado IN ?", []string{billing.EstadoRunning.String(), billing.EstadoStopped.String()}).
		Find(&servidores)
	if result.Error != nil {
		slog.Error("Error buscando servidores para reporte de deuda", "error", result.Error)
		return
	}

	var report string
	count := 0
	for i := range servidores {
		dias := billing.PendingDebtDays(&servidores[i], now)
		if dias.IntPart() < int64(umbralDias) {
			continue
		}
		count++
		report += fmt.Sprintf("\n• #%d %s: %s días sin facturar", servidores[i].ID, servidores[i].Nombre, dias.StringFixed(1))
	}

	if count == 0 {
		return
	}

	slog.Info("Servidores con deuda alta", "count", count, "umbral_dias", umbralDias)
	s.notifier.NotifyAdmin(fmt.Sprintf("⚠️ %d servidor(es) con más de %d días sin facturar:%s", count, umbralDias, report))
}
