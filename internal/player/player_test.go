package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dexterlb/mpvipc"
)

type fakeProps map[string]interface{}

func (f fakeProps) Get(name string) (interface{}, error) {
	value, ok := f[name]
	if !ok {
		return nil, errors.New("property unavailable")
	}
	return value, nil
}

func TestTranslateFileLoaded(t *testing.T) {
	props := fakeProps{"path": "/media/Show.S01E01.mkv", "duration": 1440.6}
	event, ok := translate(&mpvipc.Event{Name: "file-loaded"}, props)
	if !ok {
		t.Fatal("expected file-loaded to translate")
	}
	if event.Kind != VideoStarted || event.Path != "/media/Show.S01E01.mkv" || event.Duration != 1440 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestTranslateFileLoadedWithoutPathIsIgnored(t *testing.T) {
	if _, ok := translate(&mpvipc.Event{Name: "file-loaded"}, fakeProps{}); ok {
		t.Fatal("expected event without path to be dropped")
	}
}

func TestTranslateEndFileReasons(t *testing.T) {
	tests := []struct {
		name string
		data map[string]interface{}
		want EventKind
	}{
		{name: "eof string", data: map[string]interface{}{"reason": "eof"}, want: PlaybackEnded},
		{name: "eof numeric", data: map[string]interface{}{"reason": float64(0)}, want: PlaybackEnded},
		{name: "stop", data: map[string]interface{}{"reason": "stop"}, want: PlaybackStopped},
		{name: "quit numeric", data: map[string]interface{}{"reason": float64(2)}, want: PlaybackStopped},
		{name: "missing", data: nil, want: PlaybackStopped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := translate(&mpvipc.Event{Name: "end-file", ExtraData: tt.data}, fakeProps{})
			if !ok || event.Kind != tt.want {
				t.Fatalf("got %+v ok=%v, want %s", event, ok, tt.want)
			}
		})
	}
}

func TestTranslateIgnoresOtherEvents(t *testing.T) {
	if _, ok := translate(&mpvipc.Event{Name: "property-change"}, fakeProps{}); ok {
		t.Fatal("expected property-change to be ignored")
	}
	if _, ok := translate(nil, fakeProps{}); ok {
		t.Fatal("expected nil event to be ignored")
	}
}

func TestPlayingVideo(t *testing.T) {
	if playingVideo(fakeProps{"vid": float64(1)}) {
		t.Fatal("no path means nothing is playing")
	}
	if playingVideo(fakeProps{"path": "/a.flac", "vid": false}) {
		t.Fatal("audio-only file is not video")
	}
	if !playingVideo(fakeProps{"path": "/a.mkv", "vid": float64(1)}) {
		t.Fatal("expected video playback")
	}
}

func TestDisconnectedMPVHost(t *testing.T) {
	m := NewMPV("/nonexistent/socket", NewChannel(1), nil)
	if m.IsPlayingVideo(context.Background()) {
		t.Fatal("disconnected adapter cannot be playing")
	}
	if err := m.DeliverSubtitle(context.Background(), "/tmp/x.ass"); err == nil {
		t.Fatal("expected delivery error while disconnected")
	}
}

func TestChannelPublishAndClose(t *testing.T) {
	ch := NewChannel(1)
	if err := ch.Publish(context.Background(), Event{Kind: PlaybackStopped}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := ch.Publish(ctx, Event{Kind: PlaybackEnded}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected full channel to honour ctx, got %v", err)
	}

	if got := <-ch.Events(); got.Kind != PlaybackStopped {
		t.Fatalf("unexpected event %+v", got)
	}
	ch.Close()
	ch.Close()
	if _, ok := <-ch.Events(); ok {
		t.Fatal("expected closed events channel")
	}
	if err := ch.Publish(context.Background(), Event{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestHeadlessHost(t *testing.T) {
	h := NewHeadless(nil)
	if !h.IsPlayingVideo(context.Background()) {
		t.Fatal("headless host always accepts delivery")
	}
	if err := h.DeliverSubtitle(context.Background(), "/tmp/x.ass"); err != nil {
		t.Fatalf("DeliverSubtitle: %v", err)
	}
}
