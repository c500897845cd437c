package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/service"
	"github.com/vibast-solutions/ms-go-remittance/config"
)

var (
	workerMode bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile stale provider-backed payments and finalize late successes",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"reconcile",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ReconcileInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunReconcileBatch(ctx)
			},
		)
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run expiration-related commands",
}

var expirePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Cancel pending payments older than the pending timeout",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"expire_pending",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePendingInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunExpirePendingBatch(ctx)
			},
		)
	},
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess <session_id>",
	Short: "Re-run finalization for a checkout session",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		_, svc, cleanup := mustCreateServices()
		defer cleanup()

		sessionID := args[0]
		runJob("reprocess", func() error {
			result, err := svc.payments.Reprocess(context.Background(), sessionID)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"session_id":  sessionID,
				"status":      result.Record.Status,
				"finalized":   result.Finalized,
				"reason":      result.Reason,
				"transfer_id": result.Record.MetaValue(entity.MetaTransferID),
			}).Info("Session reprocessed")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(reprocessCmd)
	expireCmd.AddCommand(expirePendingCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.PaymentService, ctx context.Context) error,
) {
	cfg, svc, cleanup := mustCreateServices()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), svc.payments, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(svc.payments, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	paymentService *service.PaymentService,
	fn func(s *service.PaymentService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(paymentService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(paymentService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
