package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"smart-factory-backend/internal/model"
)

// Sender defines the interface for delivering a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans machine stop alerts out to subscribed browsers. Event
// ingestion dispatches a machine id whenever a stop event is recorded; a
// worker loads that machine's subscriptions and pushes the alert.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	for {
		select {
		case machineID := <-wp.jobs:
			wp.notifyStop(ctx, machineID)
		case <-ctx.Done():
			log.Printf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a stop alert for the given machine. Non-blocking: when the
// pool is saturated the alert is dropped rather than stalling ingestion.
func (wp *WorkerPool) Dispatch(machineID int64) {
	select {
	case wp.jobs <- machineID:
	default:
		log.Printf("notification queue full, dropping stop alert for machine %d", machineID)
	}
}

// notifyStop fetches subscriptions for a machine and sends the stop alert.
func (wp *WorkerPool) notifyStop(ctx context.Context, machineID int64) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_machine_alerts sma ON sma.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sma.machine_id = ?", machineID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for machine %d: %v", machineID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	var machine model.Machine
	machineLabel := fmt.Sprintf("%d", machineID)
	if err := wp.db.WithContext(ctx).
		Select("name").
		First(&machine, machineID).Error; err != nil {
		log.Printf("Error fetching machine %d: %v", machineID, err)
	} else if machine.Name != "" {
		machineLabel = machine.Name
	}

	message := fmt.Sprintf("Machine %s reported a stop", machineLabel)
	for _, sub := range subscriptions {
		wp.send(ctx, sub, []byte(message))
	}
}

// send delivers a single web push notification.
func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
