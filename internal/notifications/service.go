package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dailyshorts/internal/config"
)

const (
	userAgent       = "dailyshorts/0.1.0"
	defaultNtfyBase = "https://ntfy.sh/"
)

// Event names a notification trigger.
type Event string

const (
	EventRunCompleted    Event = "run_completed"
	EventRunFailed       Event = "run_failed"
	EventPublishDegraded Event = "publish_degraded"
	EventTest            Event = "test"
)

// Payload carries event-specific values.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topicEndpoint(topic),
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventRunCompleted:    cfg.Notifications.RunCompleted,
			EventRunFailed:       cfg.Notifications.RunFailed,
			EventPublishDegraded: cfg.Notifications.Degraded,
			EventTest:            true,
		},
	}
}

// topicEndpoint accepts either a bare topic name or a full URL.
func topicEndpoint(topic string) string {
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return topic
	}
	return defaultNtfyBase + strings.TrimLeft(topic, "/")
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	title := payloadString(payload, "title")
	if title == "" {
		title = "untitled"
	}
	switch event {
	case EventRunCompleted:
		body := fmt.Sprintf("✅ Published: %s", title)
		if platforms := payloadString(payload, "platforms"); platforms != "" {
			body = fmt.Sprintf("%s\nPlatforms: %s", body, platforms)
		}
		if duration := payloadDuration(payload, "duration"); duration > 0 {
			body = fmt.Sprintf("%s\nDuration: %s", body, duration)
		}
		if archive := payloadString(payload, "archivePath"); archive != "" {
			body = fmt.Sprintf("%s\nArchived: %s", body, archive)
		}
		return message{
			title: "Daily Shorts - Published",
			body:  body,
			tags:  []string{"dailyshorts", "run", "completed"},
		}, true
	case EventRunFailed:
		stage := payloadString(payload, "stage")
		if stage == "" {
			stage = "unknown stage"
		}
		body := fmt.Sprintf("❌ Run failed at %s", stage)
		if kind := payloadString(payload, "errorKind"); kind != "" {
			body = fmt.Sprintf("%s (%s)", body, kind)
		}
		if errText := payloadString(payload, "error"); errText != "" {
			body = fmt.Sprintf("%s: %s", body, errText)
		}
		if runID := payloadString(payload, "runID"); runID != "" {
			body = fmt.Sprintf("%s\nRun: %s", body, runID)
		}
		return message{
			title:    "Daily Shorts - Run Failed",
			body:     body,
			tags:     []string{"dailyshorts", "error", "alert"},
			priority: "high",
		}, true
	case EventPublishDegraded:
		failed := payloadString(payload, "failed")
		if failed == "" {
			failed = "unknown"
		}
		return message{
			title: "Daily Shorts - Publish Degraded",
			body:  fmt.Sprintf("⚠️ %s published, but these platforms failed: %s", title, failed),
			tags:  []string{"dailyshorts", "publish", "degraded"},
		}, true
	case EventTest:
		return message{
			title:    "Daily Shorts - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"dailyshorts", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch value := payload[key].(type) {
	case string:
		return strings.TrimSpace(value)
	case []string:
		return strings.Join(value, ", ")
	case fmt.Stringer:
		return strings.TrimSpace(value.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func payloadDuration(payload Payload, key string) time.Duration {
	if payload == nil {
		return 0
	}
	if value, ok := payload[key].(time.Duration); ok && value > 0 {
		return value.Round(time.Second)
	}
	return 0
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
