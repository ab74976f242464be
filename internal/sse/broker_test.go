package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	ID    string
	Event string
	Data  string
}

func parseFrames(raw string) []frame {
	var out []frame
	for _, block := range strings.Split(raw, "\n\n") {
		var f frame
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "id: "):
				f.ID = strings.TrimPrefix(line, "id: ")
			case strings.HasPrefix(line, "event: "):
				f.Event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				f.Data = strings.TrimPrefix(line, "data: ")
			}
		}
		if f.Event != "" {
			out = append(out, f)
		}
	}
	return out
}

// drain collects the frames already queued on ch.
func drain(t *testing.T, ch chan []byte, want int) []frame {
	t.Helper()
	var out []frame
	deadline := time.After(time.Second)
	for len(out) < want {
		select {
		case msg := <-ch:
			out = append(out, parseFrames(string(msg))...)
		case <-deadline:
			t.Fatalf("got %d frames, want %d: %+v", len(out), want, out)
		}
	}
	select {
	case msg := <-ch:
		t.Fatalf("unexpected extra frame %q", msg)
	case <-time.After(20 * time.Millisecond):
	}
	return out
}

func events(frames []frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Event
	}
	return out
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestClientCount(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	assert.Equal(t, 0, b.ClientCount())

	a, c := b.Subscribe(), b.Subscribe()
	assert.Equal(t, 2, b.ClientCount())

	b.Unsubscribe(a)
	assert.Equal(t, 1, b.ClientCount())
	_, open := <-a
	assert.False(t, open)

	b.Unsubscribe(c)
	b.Unsubscribe(c)
	assert.Equal(t, 0, b.ClientCount())
}

func TestCatalogChangeEvents(t *testing.T) {
	clock := &manualClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBroker(2 * time.Second)
	b.now = clock.now
	defer b.Close()
	ch := b.Subscribe()

	b.PublishCatalogEvent(EntityAsset, KindCreated, "logo-1")
	b.PublishCatalogEvent(EntityImage, KindDeleted, "img-1")
	b.PublishCatalogEvent(EntityImage, "renamed", "img-2")

	frames := drain(t, ch, 3)
	assert.Equal(t, []string{"asset.created", TypeCatalogUpdated, "image.deleted"}, events(frames))
	assert.Equal(t, []string{"1", "2", "3"}, []string{frames[0].ID, frames[1].ID, frames[2].ID})

	var c Change
	require.NoError(t, json.Unmarshal([]byte(frames[2].Data), &c))
	assert.Equal(t, Change{Entity: EntityImage, Kind: KindDeleted, ID: "img-1"}, c)

	// Past the throttle window the catalog event fires again.
	clock.advance(2 * time.Second)
	b.PublishCatalogEvent(EntityAsset, KindUpdated, "logo-1")
	assert.Equal(t, []string{"asset.updated", TypeCatalogUpdated}, events(drain(t, ch, 2)))
}

func TestObjectMissingEvent(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()

	b.PublishObjectMissing("brand-assets/logo/logo-1/primary.svg", []string{"logo-1"}, nil)

	frames := drain(t, ch, 1)
	require.Equal(t, TypeObjectMissing, frames[0].Event)
	var got ObjectMissing
	require.NoError(t, json.Unmarshal([]byte(frames[0].Data), &got))
	assert.Equal(t, ObjectMissing{
		Key:    "brand-assets/logo/logo-1/primary.svg",
		Assets: []string{"logo-1"},
		Images: []string{},
	}, got)
}

func TestSlowClientDoesNotBlock(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	slow := b.Subscribe()
	fast := b.Subscribe()

	for i := 0; i < clientBuffer+10; i++ {
		b.PublishCatalogEvent(EntityImage, KindCreated, "img")
		if i < clientBuffer/2 {
			<-fast
		}
	}
	require.Eventually(t, func() bool { return len(slow) == clientBuffer }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, b.ClientCount())
}

func TestServeHTTPStreams(t *testing.T) {
	b := NewBroker(time.Hour)
	b.keepAlive = 10 * time.Millisecond
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	b.PublishCatalogEvent(EntityAsset, KindUpdated, "c1")
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, ": ping\n\n")
	frames := parseFrames(body)
	require.Len(t, frames, 2)
	assert.Equal(t, "asset.updated", frames[0].Event)
	assert.JSONEq(t, `{"entity":"asset","kind":"updated","id":"c1"}`, frames[0].Data)
	assert.Equal(t, TypeCatalogUpdated, frames[1].Event)

	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestServeHTTPEndsOnClose(t *testing.T) {
	b := NewBroker(time.Second)
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	b.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler still running after Close")
	}
}

func TestClosedBroker(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe()
	b.Close()
	b.Close()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.ClientCount())

	late := b.Subscribe()
	_, open = <-late
	assert.False(t, open)

	b.PublishCatalogEvent(EntityAsset, KindDeleted, "a1")
	b.PublishObjectMissing("k", nil, nil)
}
