package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"danmaku/internal/config"
	"danmaku/internal/notifications"
	"danmaku/internal/services"
)

type recordingSink struct {
	notices []notifications.Notice
	err     error
}

func (r *recordingSink) Notify(_ context.Context, notice notifications.Notice) error {
	r.notices = append(r.notices, notice)
	return r.err
}

func TestNewNtfyReturnsNilWhenTopicMissing(t *testing.T) {
	if sink := notifications.NewNtfy(config.Notifications{}); sink != nil {
		t.Fatalf("expected nil sink, got %T", sink)
	}
}

func TestNtfySinkFormatsRequest(t *testing.T) {
	var gotTitle, gotTags, gotPriority, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		gotPriority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	sink := notifications.NewNtfy(config.Notifications{NtfyTopic: server.URL, RequestTimeout: 5})
	notice, ok := notifications.NoticeFor(services.OutcomeFailed, "/media/a.mkv", "", 0)
	if !ok {
		t.Fatal("expected failure notice")
	}
	if err := sink.Notify(context.Background(), notice); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if gotTitle != "Danmaku unavailable" {
		t.Fatalf("unexpected title %q", gotTitle)
	}
	if gotTags != "danmaku,failed,warning" || gotPriority != "high" {
		t.Fatalf("unexpected tags/priority %q %q", gotTags, gotPriority)
	}
	if gotBody != "Could not load danmaku\n/media/a.mkv" {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestNtfySinkReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	sink := notifications.NewNtfy(config.Notifications{NtfyTopic: server.URL})
	if err := sink.Notify(context.Background(), notifications.Notice{Kind: services.OutcomeSucceeded}); err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestNoticeForOutcomes(t *testing.T) {
	if _, ok := notifications.NoticeFor(services.OutcomeCancelled, "v", "", 0); ok {
		t.Fatal("cancelled runs must stay silent")
	}
	notice, ok := notifications.NoticeFor(services.OutcomeSucceeded, "v", "Show - Ep 1", 42)
	if !ok || notice.Message != "42 comments for Show - Ep 1" {
		t.Fatalf("unexpected success notice %+v", notice)
	}
	if got := (notifications.Notice{Kind: services.OutcomeNoMatch}).Heading(); got != "Danmaku - No Match" {
		t.Fatalf("unexpected heading %q", got)
	}
}

func TestHeadingConcurrentFallback(t *testing.T) {
	notice := notifications.Notice{Kind: services.OutcomeNoMatch}
	var wg sync.WaitGroup
	headings := make([]string, 16)
	for i := range headings {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			headings[i] = notice.Heading()
		}(i)
	}
	wg.Wait()
	for i, got := range headings {
		if got != "Danmaku - No Match" {
			t.Fatalf("heading %d = %q", i, got)
		}
	}
	if got := (notifications.Notice{Kind: services.OutcomeFailed, Title: "Custom"}).Heading(); got != "Custom" {
		t.Fatalf("explicit title ignored: %q", got)
	}
}

func TestDispatcherGatesAndFansOut(t *testing.T) {
	enabled := false
	first := &recordingSink{err: errors.New("osd offline")}
	second := &recordingSink{}
	dispatcher := notifications.NewDispatcher(func() bool { return enabled }, nil, first, nil, second)

	notice := notifications.Notice{Kind: services.OutcomeDisabled}
	if err := dispatcher.Publish(context.Background(), notice); err != nil {
		t.Fatalf("suppressed publish returned %v", err)
	}
	if len(first.notices)+len(second.notices) != 0 {
		t.Fatal("notices must be suppressed while disabled")
	}

	enabled = true
	if err := dispatcher.Publish(context.Background(), notice); err == nil {
		t.Fatal("expected sink error to surface")
	}
	if len(first.notices) != 1 || len(second.notices) != 1 {
		t.Fatalf("expected fan-out despite first sink failing: %d %d", len(first.notices), len(second.notices))
	}
}
