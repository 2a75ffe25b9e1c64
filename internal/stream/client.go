package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// ErrFallbackToPolling возвращается после исчерпания попыток
// переподключения: вызывающая сторона должна перейти на pull endpoint
var ErrFallbackToPolling = errors.New("reconnect attempts exhausted, fall back to polling")

// ClientState - состояние клиентского соединения
type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
)

// String возвращает читаемое имя состояния
func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ClientConfig настраивает подключение клиента
type ClientConfig struct {
	URL                  string
	AuthToken            string
	BackoffBase          time.Duration
	BackoffCap           time.Duration
	MaxReconnectAttempts int
}

// Client - потребитель event stream с автоматическим переподключением.
// Состояния: disconnected -> connecting -> connected; при обрыве клиент
// возвращается в connecting с экспоненциальной задержкой. После
// MaxReconnectAttempts последовательных неудач возвращается
// ErrFallbackToPolling. Счетчик попыток сбрасывается при успешном
// подключении.
type Client struct {
	cfg     ClientConfig
	backoff *Backoff
	logger  *logger.Logger

	// dial и sleep подменяются в тестах
	dial  func(ctx context.Context) (io.ReadCloser, error)
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	state   ClientState
	onEvent func(name string, data []byte)
}

// NewClient создает stream client. onEvent вызывается на каждое
// полученное событие (включая heartbeat).
func NewClient(cfg ClientConfig, onEvent func(name string, data []byte), log *logger.Logger) *Client {
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}

	c := &Client{
		cfg:     cfg,
		backoff: NewBackoff(cfg.BackoffBase, cfg.BackoffCap),
		logger:  log,
		onEvent: onEvent,
	}
	c.dial = c.dialHTTP
	c.sleep = func(ctx context.Context, d time.Duration) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	return c
}

// State возвращает текущее состояние соединения.
// Безопасен для вызова из других goroutines во время Run.
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ClientState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run держит соединение открытым до отмены ctx.
// Возвращает ErrFallbackToPolling после исчерпания переподключений.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			c.setState(StateDisconnected)
			return err
		}

		c.setState(StateConnecting)
		body, err := c.dial(ctx)
		if err != nil {
			c.setState(StateDisconnected)
			delay := c.backoff.Next()
			c.logger.Warn("Stream connection failed",
				"attempt", c.backoff.Attempt(),
				"max_attempts", c.cfg.MaxReconnectAttempts,
				"retry_in", delay.String(),
				"error", err.Error(),
			)
			if c.backoff.Attempt() >= c.cfg.MaxReconnectAttempts {
				return ErrFallbackToPolling
			}
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		c.setState(StateConnected)
		c.backoff.Reset()
		c.logger.Info("Stream connected", "url", c.cfg.URL)

		err = c.consume(ctx, body)
		body.Close()
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("Stream interrupted", "error", errString(err))
	}
}

func errString(err error) string {
	if err == nil {
		return "stream closed by server"
	}
	return err.Error()
}

func (c *Client) dialHTTP(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// consume читает события формата text/event-stream: строки "event:" и
// "data:", пустая строка завершает событие, строки с ":" в начале
// (heartbeat-комментарии) игнорируются
func (c *Client) consume(ctx context.Context, body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	eventName := "message"
	var data bytes.Buffer

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()

		switch {
		case line == "":
			if data.Len() > 0 && c.onEvent != nil {
				c.onEvent(eventName, bytes.TrimSuffix(data.Bytes(), []byte("\n")))
			}
			eventName = "message"
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// comment line, keep-alive
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			data.WriteString("\n")
		}
	}
	return scanner.Err()
}
