// Package notify renders periodic summaries of the ledger and hands them
// to a Sender for delivery. Rendering is separated from transport so tests
// can capture messages without a broker.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"caja/internal/amqp"
	"caja/internal/core"
	"caja/internal/services"
)

// PendingAlertThreshold is the number of unpaid expenses above which the
// morning alert fires.
const PendingAlertThreshold = 5

// Sender delivers a rendered notification. *amqp.Client satisfies it.
type Sender interface {
	Publish(ctx context.Context, n *amqp.Notification) error
}

type Notifier struct {
	finance *services.Finance
	sender  Sender
}

func New(finance *services.Finance, sender Sender) *Notifier {
	return &Notifier{finance: finance, sender: sender}
}

// SendDailySummary publishes the end-of-day closing summary.
func (n *Notifier) SendDailySummary(ctx context.Context) error {
	day, err := n.finance.DailyTotals(ctx, time.Time{})
	if err != nil {
		return fmt.Errorf("daily totals: %w", err)
	}
	return n.sender.Publish(ctx, RenderDailySummary(day))
}

// SendPendingAlert publishes a reminder when too many expenses sit unpaid.
// Below the threshold nothing is sent.
func (n *Notifier) SendPendingAlert(ctx context.Context) error {
	pending, err := n.finance.PendingExpenses(ctx)
	if err != nil {
		return fmt.Errorf("pending expenses: %w", err)
	}
	msg := RenderPendingAlert(pending)
	if msg == nil {
		return nil
	}
	return n.sender.Publish(ctx, msg)
}

// SendProjection publishes the month-end projection.
func (n *Notifier) SendProjection(ctx context.Context) error {
	stats, err := n.finance.AdvancedStatistics(ctx)
	if err != nil {
		return fmt.Errorf("statistics: %w", err)
	}
	msg := RenderProjection(stats)
	if msg == nil {
		return nil
	}
	return n.sender.Publish(ctx, msg)
}

// RenderDailySummary formats the closing summary for one day.
func RenderDailySummary(day core.DailyTotals) *amqp.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Resumen del %s\n", day.Date.Format("02/01/2006"))
	fmt.Fprintf(&b, "Ingresos: %s\n", money(day.Income))
	// Expenses read as a magnitude here; the sign is implied by the label.
	fmt.Fprintf(&b, "Gastos: $%s\n", core.FormatAmount(day.Expense))
	fmt.Fprintf(&b, "Neto: %s\n", money(day.Net))
	fmt.Fprintf(&b, "Movimientos: %d", day.MovementCount)
	return amqp.NewNotification(amqp.KindDailySummary, "Cierre del día", b.String())
}

// RenderPendingAlert formats the unpaid-expense reminder, or returns nil
// when the count is at or below the threshold.
func RenderPendingAlert(pending []core.PendingExpense) *amqp.Notification {
	if len(pending) <= PendingAlertThreshold {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hay %d gastos sin pagar:\n", len(pending))
	for _, p := range pending {
		fmt.Fprintf(&b, "%d. %s %s\n", p.Position, p.Movement.Counterparty, money(p.Movement.Amount))
	}
	return amqp.NewNotification(amqp.KindPendingAlert, "Gastos pendientes", strings.TrimRight(b.String(), "\n"))
}

// RenderProjection formats the month-end projection, or returns nil when
// the month has no data yet.
func RenderProjection(stats core.Statistics) *amqp.Notification {
	if !stats.HasData {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Proyección a fin de mes:\n")
	fmt.Fprintf(&b, "Ingresos: %s\n", money(stats.Projection.Income))
	fmt.Fprintf(&b, "Gastos: %s\n", money(stats.Projection.Expense))
	fmt.Fprintf(&b, "Neto: %s\n", money(stats.Projection.Net))
	fmt.Fprintf(&b, "Venta diaria promedio: %s", money(stats.AverageDailySale))
	return amqp.NewNotification(amqp.KindProjection, "Proyección mensual", b.String())
}

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + core.FormatAmount(d)
	}
	return "$" + core.FormatAmount(d)
}
