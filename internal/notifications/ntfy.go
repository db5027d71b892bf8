package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"danmaku/internal/config"
)

const userAgent = "danmakud/1.0"

// Sink receives notices. The player host and the ntfy client both satisfy it.
type Sink interface {
	Notify(ctx context.Context, notice Notice) error
}

// NewNtfy builds an ntfy sink from configuration. It returns nil when no
// topic is configured.
func NewNtfy(cfg config.Notifications) Sink {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return nil
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfySink{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type ntfySink struct {
	endpoint string
	client   *http.Client
}

func (n *ntfySink) Notify(ctx context.Context, notice Notice) error {
	message := notice.Message
	if notice.Video != "" {
		message = fmt.Sprintf("%s\n%s", message, notice.Video)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", notice.Heading())
	req.Header.Set("Tags", strings.Join(notice.tags(), ","))
	if priority := notice.priority(); priority != "" {
		req.Header.Set("Priority", priority)
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
