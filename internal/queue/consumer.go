package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/hostel-management/internal/model"
)

// NotificationStore persists consumed notifications.  Insert must ignore
// a second event with the same id.
type NotificationStore interface {
    Insert(ctx context.Context, n model.Notification, eventID string) error
}

// StartNotificationConsumer connects to RabbitMQ, declares the
// hostel.notifications queue and writes every message into store.  It runs
// a reconnect loop with exponential backoff and only returns once ctx is
// cancelled.  Malformed messages are rejected without requeue so a poison
// message cannot block the queue.
func StartNotificationConsumer(ctx context.Context, url string, store NotificationStore) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("notify-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, store)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, store NotificationStore) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("notify-consumer: set QoS failed: %v", err)
    }

    if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(ctx, store, d.Body); err != nil {
                log.Printf("notify-consumer: handle message failed: %v", err)
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

var recipientTypes = map[string]bool{
    model.RecipientAdmin:   true,
    model.RecipientStudent: true,
    model.RecipientAll:     true,
}

func handleMessage(ctx context.Context, store NotificationStore, body []byte) error {
    var ev NotificationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if !recipientTypes[ev.RecipientType] {
        return fmt.Errorf("unknown recipient type %q", ev.RecipientType)
    }
    if strings.TrimSpace(ev.Title) == "" {
        return errors.New("empty title")
    }
    n := model.Notification{
        UserID:        ev.UserID,
        RecipientType: ev.RecipientType,
        AlertType:     ev.AlertType,
        Title:         ev.Title,
        Message:       ev.Message,
    }
    if n.AlertType == "" {
        n.AlertType = "General"
    }
    if err := store.Insert(ctx, n, ev.EventID); err != nil {
        return fmt.Errorf("insert notification: %w", err)
    }
    return nil
}
