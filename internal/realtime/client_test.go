package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
)

// startServer runs a websocket endpoint that records the first subscribe
// frame and then pushes the given events.
func startServer(t *testing.T, events []string, gotFrame chan subscribeFrame) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("authorization = %q", auth)
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		ctx := r.Context()

		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var frame subscribeFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Errorf("decode subscribe frame: %v", err)
			return
		}
		gotFrame <- frame

		for _, ev := range events {
			if err := conn.Write(ctx, ws.MessageText, []byte(ev)); err != nil {
				return
			}
		}

		// Hold the connection open until the client closes it.
		conn.Read(ctx)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSubscribeReceivesEvents(t *testing.T) {
	frames := make(chan subscribeFrame, 1)
	srv := startServer(t, []string{
		`{"kind":"INSERT","table":"partnerships","new":{"id":"p1"}}`,
		`{"kind":"DELETE","table":"partnerships","old":{"id":"p1"}}`,
		`{"kind":"UPDATE","table":"other_table","new":{"id":"x"}}`,
	}, frames)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := Dial(ctx, url, "test-token", slog.Default())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ch, err := client.Subscribe(ctx, "partnerships", "or(a.eq.1,b.eq.1)")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	go client.Run(ctx)

	frame := <-frames
	if frame.Action != "subscribe" || frame.Table != "partnerships" {
		t.Errorf("frame = %+v", frame)
	}
	if frame.Filter != "or(a.eq.1,b.eq.1)" {
		t.Errorf("filter = %q", frame.Filter)
	}

	first := <-ch
	if first.Kind != EventInsert {
		t.Errorf("first kind = %q, want INSERT", first.Kind)
	}
	var row struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(first.New, &row); err != nil || row.ID != "p1" {
		t.Errorf("new payload = %s (%v)", first.New, err)
	}

	second := <-ch
	if second.Kind != EventDelete {
		t.Errorf("second kind = %q, want DELETE", second.Kind)
	}
	if len(second.Old) == 0 {
		t.Error("delete event missing old row")
	}

	// The other_table event must not reach this subscription; the channel
	// should close once the connection does, without a third event.
	client.Close()
	select {
	case ev, ok := <-ch:
		if ok {
			t.Errorf("unexpected event for table %q", ev.Table)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("channel not closed after connection close")
	}
}
