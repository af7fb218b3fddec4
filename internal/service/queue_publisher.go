// Package queue_publisher provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/seat-picker/internal/queue"
)

// Publisher sends selection events to the broker at URL.  A connection is
// opened per message: completed selections are rare compared to clicks.
type Publisher struct {
    URL string
}

// New returns a Publisher for url, defaulting to queue.BrokerURL().
func New(url string) *Publisher {
    if url == "" {
        url = q.BrokerURL()
    }
    return &Publisher{URL: url}
}

// PublishSelectionCompleted publishes a SelectionCompletedEvent to the
// "selection.completed" queue. The function attempts to be robust and
// to never panic; any error is logged and returned so the caller can
// choose to ignore it. Messages are marked as persistent.
func (p *Publisher) PublishSelectionCompleted(ctx context.Context, event q.SelectionCompletedEvent) error {
    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

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

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        q.SelectionCompletedQueue, // name
        true,                      // durable
        false,                     // autoDelete
        false,                     // exclusive
        false,                     // noWait
        nil,                       // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    event.SessionID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                        // default exchange
        q.SelectionCompletedQueue, // routing key = queue name
        false,                     // mandatory
        false,                     // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }

    return nil
}
