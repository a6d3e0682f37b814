package jobs

import (
	"context"
	"log"
	"time"

	"billhive/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// PaymentReconciler periodically sweeps payments parked pending (provider
// timeout on initiation, missed callbacks) and applies any terminal outcome
// the provider reports.
type PaymentReconciler struct {
	scheduler  gocron.Scheduler
	paymentSvc services.PaymentService
	interval   time.Duration
}

func NewPaymentReconciler(paymentSvc services.PaymentService, interval time.Duration) (*PaymentReconciler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	r := &PaymentReconciler{
		scheduler:  scheduler,
		paymentSvc: paymentSvc,
		interval:   interval,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.run, context.Background()),
		gocron.WithName("payment-reconciliation"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Start starts the reconciliation schedule
func (r *PaymentReconciler) Start() {
	log.Printf("Starting payment reconciliation every %s", r.interval)
	r.scheduler.Start()
}

// Stop shuts the scheduler down
func (r *PaymentReconciler) Stop() error {
	log.Printf("Stopping payment reconciliation")
	return r.scheduler.Shutdown()
}

func (r *PaymentReconciler) run(ctx context.Context) {
	if err := r.paymentSvc.ReconcilePendingPayments(ctx); err != nil {
		log.Printf("Payment reconciliation sweep failed: %v", err)
	}
}
