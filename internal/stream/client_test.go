package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

type receivedEvent struct {
	name string
	data string
}

func newTestClient(cfg ClientConfig, events *[]receivedEvent) *Client {
	return NewClient(cfg, func(name string, data []byte) {
		*events = append(*events, receivedEvent{name: name, data: string(data)})
	}, logger.New("error"))
}

func TestClientRun_FallbackAfterMaxAttempts(t *testing.T) {
	var events []receivedEvent
	client := newTestClient(ClientConfig{
		URL:                  "http://test/stream",
		BackoffBase:          time.Millisecond,
		BackoffCap:           time.Millisecond,
		MaxReconnectAttempts: 3,
	}, &events)

	dials := 0
	client.dial = func(ctx context.Context) (io.ReadCloser, error) {
		dials++
		return nil, errors.New("connection refused")
	}
	var slept []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	err := client.Run(context.Background())
	if !errors.Is(err, ErrFallbackToPolling) {
		t.Fatalf("Run() error = %v, want ErrFallbackToPolling", err)
	}
	if dials != 3 {
		t.Fatalf("dial attempts = %d, want 3", dials)
	}
	// После последней неудачи не спим, сразу отдаем fallback
	if len(slept) != 2 {
		t.Fatalf("sleeps = %d, want 2", len(slept))
	}
	if client.State() != StateDisconnected {
		t.Fatalf("State() = %s, want disconnected", client.State())
	}
}

func TestClientRun_BackoffGrows(t *testing.T) {
	var events []receivedEvent
	client := newTestClient(ClientConfig{
		URL:                  "http://test/stream",
		BackoffBase:          time.Second,
		BackoffCap:           30 * time.Second,
		MaxReconnectAttempts: 4,
	}, &events)

	client.dial = func(ctx context.Context) (io.ReadCloser, error) {
		return nil, errors.New("connection refused")
	}
	var slept []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if err := client.Run(context.Background()); !errors.Is(err, ErrFallbackToPolling) {
		t.Fatalf("Run() error = %v, want ErrFallbackToPolling", err)
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("sleeps = %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("sleep #%d = %v, want %v", i+1, slept[i], want[i])
		}
	}
}

func TestClientRun_SuccessResetsAttempts(t *testing.T) {
	var events []receivedEvent
	client := newTestClient(ClientConfig{
		URL:                  "http://test/stream",
		BackoffBase:          time.Millisecond,
		BackoffCap:           time.Millisecond,
		MaxReconnectAttempts: 2,
	}, &events)

	// Паттерн: fail, success, fail, fail -> fallback.
	// Без сброса счетчика fallback наступил бы уже на третьем dial.
	script := []bool{false, true, false, false}
	dials := 0
	client.dial = func(ctx context.Context) (io.ReadCloser, error) {
		ok := script[dials]
		dials++
		if !ok {
			return nil, errors.New("connection refused")
		}
		return io.NopCloser(strings.NewReader("event: connected\ndata: {}\n\n")), nil
	}
	client.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	err := client.Run(context.Background())
	if !errors.Is(err, ErrFallbackToPolling) {
		t.Fatalf("Run() error = %v, want ErrFallbackToPolling", err)
	}
	if dials != 4 {
		t.Fatalf("dial attempts = %d, want 4 (counter reset after success)", dials)
	}
	if len(events) != 1 || events[0].name != "connected" {
		t.Fatalf("events = %v, want single connected event", events)
	}
}

func TestClientRun_ContextCancel(t *testing.T) {
	var events []receivedEvent
	client := newTestClient(ClientConfig{
		URL:         "http://test/stream",
		BackoffBase: time.Hour,
		BackoffCap:  time.Hour,
	}, &events)

	ctx, cancel := context.WithCancel(context.Background())
	client.dial = func(ctx context.Context) (io.ReadCloser, error) {
		cancel()
		return nil, errors.New("connection refused")
	}

	err := client.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestState_ConcurrentReadsDuringRun(t *testing.T) {
	var events []receivedEvent
	client := newTestClient(ClientConfig{
		URL:                  "http://test/stream",
		BackoffBase:          time.Millisecond,
		BackoffCap:           time.Millisecond,
		MaxReconnectAttempts: 5,
	}, &events)

	// Первое подключение держится открытым, дальше сервер недоступен
	pr, pw := io.Pipe()
	var dials atomic.Int64
	client.dial = func(ctx context.Context) (io.ReadCloser, error) {
		if dials.Add(1) == 1 {
			return pr, nil
		}
		return nil, errors.New("connection refused")
	}
	client.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	done := make(chan error, 1)
	go func() {
		done <- client.Run(context.Background())
	}()

	// Опрос состояния из другой goroutine, пока Run его меняет
	deadline := time.Now().Add(2 * time.Second)
	for client.State() != StateConnected {
		if time.Now().After(deadline) {
			t.Fatal("State() never observed connected during Run")
		}
		time.Sleep(time.Millisecond)
	}

	// Обрыв соединения: переподключения падают до fallback
	pw.Close()

	if err := <-done; !errors.Is(err, ErrFallbackToPolling) {
		t.Fatalf("Run() error = %v, want ErrFallbackToPolling", err)
	}
	if client.State() != StateDisconnected {
		t.Fatalf("State() = %s, want disconnected", client.State())
	}
}

func TestConsume_ParsesEventStream(t *testing.T) {
	var events []receivedEvent
	client := newTestClient(ClientConfig{URL: "http://test/stream"}, &events)

	raw := strings.Join([]string{
		"event: connected",
		`data: {"client_id":"abc"}`,
		"",
		": heartbeat 1700000000",
		"event: assessment",
		`data: {"overall_score":72.5}`,
		"",
		"data: no explicit event name",
		"",
		"",
	}, "\n")

	if err := client.consume(context.Background(), strings.NewReader(raw)); err != nil {
		t.Fatalf("consume() error = %v", err)
	}

	want := []receivedEvent{
		{name: "connected", data: `{"client_id":"abc"}`},
		{name: "assessment", data: `{"overall_score":72.5}`},
		{name: "message", data: "no explicit event name"},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %d, want %d: %v", len(events), len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event #%d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestConsume_MultilineData(t *testing.T) {
	var events []receivedEvent
	client := newTestClient(ClientConfig{URL: "http://test/stream"}, &events)

	raw := "event: assessment\ndata: line one\ndata: line two\n\n"
	if err := client.consume(context.Background(), strings.NewReader(raw)); err != nil {
		t.Fatalf("consume() error = %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].data != "line one\nline two" {
		t.Fatalf("data = %q, want joined lines", events[0].data)
	}
}
