package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"carshop-display-backend/internal/hub"
	"carshop-display-backend/internal/model"
	"carshop-display-backend/internal/monitoring"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending "vehicle ready" notifications.
type WorkerPool struct {
	size    int
	jobs    chan hub.ReadyJob
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan hub.ReadyJob, size*16),
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
	log.Printf("Worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			log.Printf("Worker %d processing screen %s", id, job.ScreenID)
			wp.sendNotificationsForScreen(ctx, job)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a job. When the queue is full the job is dropped rather than stalling the caller.
func (wp *WorkerPool) Dispatch(job hub.ReadyJob) {
	select {
	case wp.jobs <- job:
	default:
		log.Printf("notification queue full, dropping job for screen %s", job.ScreenID)
		monitoring.TrackNotification("dropped")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan hub.ReadyJob {
	return wp.jobs
}

// readyMessage is the text shown on the customer's device.
func readyMessage(job hub.ReadyJob) string {
	vehicle := job.LicensePlate
	if vehicle == "" {
		vehicle = job.CustomerName
	}
	if vehicle == "" {
		return fmt.Sprintf("Screen %d is free again", job.ScreenNumber)
	}
	return fmt.Sprintf("Vehicle %s on screen %d is ready for pickup", vehicle, job.ScreenNumber)
}

// sendNotificationsForScreen fetches the subscriptions watching a screen and notifies each.
func (wp *WorkerPool) sendNotificationsForScreen(ctx context.Context, job hub.ReadyJob) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_screen_mapping ssm ON ssm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("ssm.screen_id = ?", job.ScreenID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for screen %s: %v", job.ScreenID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for screen %s", len(subscriptions), job.ScreenID)
	message := []byte(readyMessage(job))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, message)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
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
		monitoring.TrackNotification("error")
		return
	}
	defer resp.Body.Close()
	monitoring.TrackNotification("sent")

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Select("Screens").Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
