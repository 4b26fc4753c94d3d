package service

import (
    "context"
    "encoding/json"
    "log"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/hostel-management/internal/model"
    q "github.com/iliyamo/hostel-management/internal/queue"
)

// QueuePublisher publishes notifications and OTP codes to RabbitMQ.  Each
// call dials a fresh connection; the volume is a handful of messages per
// admin action so connection reuse is not worth the reconnect handling.
type QueuePublisher struct {
    URL string
    now func() time.Time
}

// NewQueuePublisher returns a publisher for the broker at url.
func NewQueuePublisher(url string) *QueuePublisher {
    return &QueuePublisher{URL: url, now: time.Now}
}

// Notify publishes n to the hostel.notifications queue.
func (p *QueuePublisher) Notify(ctx context.Context, n model.Notification) error {
    return p.publish(ctx, q.NotificationQueue, notificationEvent(n, p.now()))
}

// SendOTP publishes a registration code to the hostel.otp queue.
func (p *QueuePublisher) SendOTP(ctx context.Context, email, name, code string, expiresAt time.Time) error {
    return p.publish(ctx, q.OTPQueue, q.OTPEvent{
        EventID:   uuid.NewString(),
        Email:     email,
        Name:      name,
        Code:      code,
        ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
    })
}

func notificationEvent(n model.Notification, at time.Time) q.NotificationEvent {
    return q.NotificationEvent{
        EventID:       uuid.NewString(),
        UserID:        n.UserID,
        RecipientType: n.RecipientType,
        AlertType:     n.AlertType,
        Title:         n.Title,
        Message:       n.Message,
        CreatedAt:     at.UTC().Format(time.RFC3339),
    }
}

func (p *QueuePublisher) publish(ctx context.Context, queueName string, event any) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // durable so messages survive broker restarts
    if _, err := ch.QueueDeclare(
        queueName, // name
        true,      // durable
        false,     // autoDelete
        false,     // exclusive
        false,     // noWait
        nil,       // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    p.now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",        // default exchange
        queueName, // routing key = queue name
        false,     // mandatory
        false,     // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}
