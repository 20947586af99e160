package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-billing/app/service"
	"github.com/vibast-solutions/ms-go-billing/config"
)

var (
	workerMode  bool
	jobPlanID   uint64
	jobDomainID int32
)

var runBillingCmd = &cobra.Command{
	Use:   "run",
	Short: "Charge pending plans and plans whose schedule is due",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"billing_run",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.BillingInterval },
			func(s *service.BillingService, ctx context.Context, cfg *config.Config) error {
				domainID := jobDomainID
				if domainID == 0 {
					domainID = cfg.Billing.DomainID
				}

				results, err := s.RunBilling(ctx, domainID, jobPlanID)
				if err != nil {
					return err
				}
				for _, line := range results {
					logrus.WithField("job", "billing_run").Info(line)
				}
				return nil
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(runBillingCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
	runBillingCmd.Flags().Uint64Var(&jobPlanID, "plan", 0, "Process a single recurring plan")
	runBillingCmd.Flags().Int32Var(&jobDomainID, "domain", 0, "Restrict the run to one domain")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.BillingService, ctx context.Context, cfg *config.Config) error,
) {
	cfg, billingService, cleanup := mustCreateBillingService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), cfg, billingService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(billingService, ctx, cfg) })
}

func runWorker(
	name string,
	interval time.Duration,
	cfg *config.Config,
	billingService *service.BillingService,
	fn func(s *service.BillingService, ctx context.Context, cfg *config.Config) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(billingService, ctx, cfg) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(billingService, ctx, cfg) })
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
