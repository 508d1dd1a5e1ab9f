package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartSeatEventConsumer connects to RabbitMQ, declares the seat.events
// queue (durable), and starts consuming messages. Each event is appended to
// logs/seating.log in a single-line, human-friendly format so the venue has
// an audit trail of who sat where and when. The function runs a reconnect
// loop; it keeps running and logs any processing errors while rejecting the
// offending message so the server continues operating.
func StartSeatEventConsumer() error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("seat-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("seat-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("seat-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(seatEventsQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(seatEventsQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			log.Printf("seat-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev SeatEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	// Ensure logs directory exists
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "seating.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var line string
	switch ev.Type {
	case EventSeatClaimed:
		line = fmt.Sprintf("[%s] Seat claimed | seat=%d | connection=%s | name=%q\n",
			ev.OccurredAt, ev.SeatLabel, ev.ConnectionID, ev.DisplayName)
	case EventSeatReleased:
		line = fmt.Sprintf("[%s] Seat released | seat=%d | connection=%s\n",
			ev.OccurredAt, ev.SeatLabel, ev.ConnectionID)
	case EventQueueJoined:
		line = fmt.Sprintf("[%s] Joined waitlist | connection=%s | name=%q | queue_length=%d\n",
			ev.OccurredAt, ev.ConnectionID, ev.DisplayName, ev.QueueLength)
	case EventQueueLeft:
		line = fmt.Sprintf("[%s] Left waitlist | connection=%s | queue_length=%d\n",
			ev.OccurredAt, ev.ConnectionID, ev.QueueLength)
	default:
		line = fmt.Sprintf("[%s] %s | connection=%s\n", ev.OccurredAt, ev.Type, ev.ConnectionID)
	}

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
