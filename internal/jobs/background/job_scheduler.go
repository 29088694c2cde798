package background

import (
	"context"
	"log"
	"sync"
	"time"

	"plumbline/internal/services"
	"plumbline/internal/webhooks"

	"github.com/go-co-op/gocron/v2"
)

// webhookPruneWindow is how long terminal webhook events are kept around
// for duplicate detection before they are removed
const webhookPruneWindow = 24 * time.Hour

// JobScheduler manages recurring background work
type JobScheduler struct {
	scheduler  gocron.Scheduler
	webhookSvc *webhooks.Service
	invoiceSvc services.InvoiceService
	jobs       map[string]gocron.Job
	mu         sync.RWMutex
}

// NewJobScheduler creates a scheduler with all recurring jobs registered
func NewJobScheduler(webhookSvc *webhooks.Service, invoiceSvc services.InvoiceService) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:  scheduler,
		webhookSvc: webhookSvc,
		invoiceSvc: invoiceSvc,
		jobs:       make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	// Webhook retry sweep - every minute
	retryJob, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(js.retryWebhookEvents, context.Background()),
		gocron.WithName("webhook-retry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create webhook retry job: %v", err)
	} else {
		js.addJob("webhook-retry", retryJob)
	}

	// Webhook prune - hourly
	pruneJob, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.pruneWebhookEvents, context.Background()),
		gocron.WithName("webhook-prune"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create webhook prune job: %v", err)
	} else {
		js.addJob("webhook-prune", pruneJob)
	}

	// Overdue invoice sweep - daily
	overdueJob, err := js.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(js.markOverdueInvoices, context.Background()),
		gocron.WithName("invoice-overdue-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create overdue invoice job: %v", err)
	} else {
		js.addJob("invoice-overdue", overdueJob)
	}
}

func (js *JobScheduler) addJob(name string, job gocron.Job) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.jobs[name] = job
}

func (js *JobScheduler) retryWebhookEvents(ctx context.Context) {
	if err := js.webhookSvc.RetryDue(ctx, time.Now()); err != nil {
		log.Printf("WARN: webhook retry sweep failed: %v", err)
	}
	if err := js.webhookSvc.ReclaimStuck(ctx, time.Now()); err != nil {
		log.Printf("WARN: webhook reclaim sweep failed: %v", err)
	}
}

func (js *JobScheduler) pruneWebhookEvents(ctx context.Context) {
	pruned, err := js.webhookSvc.Prune(ctx, webhookPruneWindow)
	if err != nil {
		log.Printf("WARN: webhook prune failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("DEBUG: pruned %d terminal webhook events", pruned)
	}
}

func (js *JobScheduler) markOverdueInvoices(ctx context.Context) {
	marked, err := js.invoiceSvc.MarkOverdueInvoices(ctx)
	if err != nil {
		log.Printf("WARN: overdue invoice sweep failed: %v", err)
		return
	}
	if marked > 0 {
		log.Printf("DEBUG: marked %d invoices overdue", marked)
	}
}
