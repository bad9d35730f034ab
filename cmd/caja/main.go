package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"caja/internal/backend"
	"caja/internal/cache"
	"caja/internal/config"
	"caja/internal/core"
	"caja/internal/log"
	"caja/internal/queue"
	"caja/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("starting caja")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := backend.NewStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer closeStore()

	loc := cfg.Location()
	now := func() time.Time { return time.Now().In(loc) }

	movements := cache.New(store, cfg.CacheTTL, now)
	committer := queue.New(store, cfg.QueueCapacity, cfg.QueueDelay)
	// The committer outlives ctx so Stop can drain buffered writes after a
	// shutdown signal.
	committer.Start(context.Background())
	guard := services.NewGuard(cfg.GuardCapacity, cfg.GuardWindow)
	finance := services.New(movements, committer, guard, now)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	// The console goroutine may stay blocked on stdin past cancellation;
	// the process exits underneath it once the write queue drains.
	go runConsole(ctx, cancel, finance, cfg)

	<-ctx.Done()

	// Drain buffered writes before exiting.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := committer.Stop(shutdownCtx); err != nil {
		logger.Warn("write queue did not drain in time", "error", err)
	}
	logger.Info("caja stopped")
}

// runConsole reads commands from stdin until EOF or cancellation.
func runConsole(ctx context.Context, cancel context.CancelFunc, finance *services.Finance, cfg *config.Config) {
	fmt.Println("caja: monto registra un ingreso, 'proveedor monto' un gasto.")
	fmt.Println("Comandos: resumen, mes, stats, pendientes, pagar N, deshacer, total proveedor, actualizar, salir")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "salir") {
			cancel()
			return
		}
		if out, err := dispatch(ctx, finance, cfg, line); err != nil {
			fmt.Println("error:", userMessage(err))
		} else if out != "" {
			fmt.Println(out)
		}
	}
	cancel()
}

func dispatch(ctx context.Context, finance *services.Finance, cfg *config.Config, line string) (string, error) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "resumen":
		day, err := finance.DailyTotals(ctx, time.Time{})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Ingresos $%s | Gastos $%s | Neto $%s | Movimientos %d",
			core.FormatAmount(day.Income), core.FormatAmount(day.Expense),
			core.FormatAmount(day.Net), day.MovementCount), nil

	case "mes":
		month, err := finance.MonthlyTotals(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Mes: ingresos $%s | gastos $%s | neto $%s | %d días operados",
			core.FormatAmount(month.Income), core.FormatAmount(month.Expense),
			core.FormatAmount(month.Net), month.OperatingDays), nil

	case "stats":
		stats, err := finance.AdvancedStatistics(ctx)
		if err != nil {
			return "", err
		}
		if !stats.HasData {
			return "Sin datos este mes.", nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Venta diaria promedio: $%s\n", core.FormatAmount(stats.AverageDailySale))
		fmt.Fprintf(&b, "Mejor día: %s ($%s)\n", stats.BestDay.Format("02/01"), core.FormatAmount(stats.BestDayAmount))
		for i, top := range stats.TopExpenses {
			fmt.Fprintf(&b, "%d. %s $%s\n", i+1, top.Counterparty, core.FormatAmount(top.Amount))
		}
		fmt.Fprintf(&b, "Proyección neto: $%s", core.FormatAmount(stats.Projection.Net))
		return b.String(), nil

	case "pendientes":
		pending, err := finance.PendingExpenses(ctx)
		if err != nil {
			return "", err
		}
		if len(pending) == 0 {
			return "Sin gastos pendientes.", nil
		}
		var b strings.Builder
		for _, p := range pending {
			fmt.Fprintf(&b, "%d. %s $%s\n", p.Position, p.Movement.Counterparty, core.FormatAmount(p.Movement.Amount))
		}
		return strings.TrimRight(b.String(), "\n"), nil

	case "pagar":
		if len(fields) != 2 {
			return "", errors.New("uso: pagar N")
		}
		position, err := strconv.Atoi(fields[1])
		if err != nil {
			return "", errors.New("uso: pagar N")
		}
		m, err := finance.MarkPaid(ctx, position)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Pagado: %s $%s", m.Counterparty, core.FormatAmount(m.Amount)), nil

	case "deshacer":
		m, err := finance.UndoLast(ctx, nil)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Eliminado ingreso de $%s", core.FormatAmount(m.Amount)), nil

	case "total":
		if len(fields) < 2 {
			return "", errors.New("uso: total proveedor")
		}
		name := strings.Join(fields[1:], " ")
		total, count, err := finance.TotalForCounterparty(ctx, name)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: $%s en %d movimientos", name, core.FormatAmount(total), count), nil

	case "actualizar":
		if err := finance.Refresh(ctx); err != nil {
			return "", err
		}
		return "Datos actualizados.", nil

	case "proveedores":
		return strings.Join(cfg.Suppliers, ", "), nil
	}

	// A bare amount is a customer sale; 'proveedor monto' is an expense.
	if len(fields) == 1 {
		amount, err := core.ParseAmount(fields[0])
		if err != nil {
			return "", err
		}
		if amount.IsNegative() {
			m, err := finance.RecordExpense(ctx, "varios", amount, true)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Gasto registrado: $%s", core.FormatAmount(m.Amount)), nil
		}
		m, err := finance.RecordIncome(ctx, amount)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Ingreso registrado: $%s", core.FormatAmount(m.Amount)), nil
	}

	paid := true
	if strings.EqualFold(fields[len(fields)-1], "debe") {
		paid = false
		fields = fields[:len(fields)-1]
	}
	if len(fields) < 2 {
		return "", fmt.Errorf("no entiendo %q", line)
	}
	amount, err := core.ParseAmount(fields[len(fields)-1])
	if err != nil {
		return "", fmt.Errorf("no entiendo %q", line)
	}
	counterparty := strings.Join(fields[:len(fields)-1], " ")
	m, err := finance.RecordExpense(ctx, counterparty, amount, paid)
	if err != nil {
		return "", err
	}
	status := "pagado"
	if !m.Paid {
		status = "pendiente"
	}
	return fmt.Sprintf("Gasto %s: %s $%s", status, m.Counterparty, core.FormatAmount(m.Amount)), nil
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrDuplicateSubmission):
		return "monto idéntico registrado hace instantes, esperá un minuto o usá otro monto"
	case errors.Is(err, core.ErrInvalidAmount):
		return "monto inválido"
	case errors.Is(err, core.ErrNotPending):
		return "ese movimiento no es un gasto pendiente"
	case errors.Is(err, core.ErrNoSuchRow):
		return "no hay movimiento para esa operación"
	default:
		return err.Error()
	}
}
