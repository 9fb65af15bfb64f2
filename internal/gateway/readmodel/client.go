package readmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/billing/internal/domain"
)

const defaultTimeout = 5 * time.Second

// Client — HTTP-адаптер к read-model сервису. Запросы идут POST'ом на
// /query/get_entity и /query/get_entities, ответ — конверт {result}|{error}.
// Любая ошибка (транспортная, таймаут, error в теле) помечается источником
// "(from read-model)" и пробрасывается без повторов: retry решает вызывающая
// сторона, а команда при таймауте отклоняется, не зависает.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *log.Entry
}

// NewClient создаёт клиент read-model. timeout <= 0 заменяется значением по умолчанию.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
		logger:     log.WithField("component", "readmodel-client"),
	}
}

// GetEntity возвращает сущность по логическому имени типа и id.
func (c *Client) GetEntity(ctx context.Context, name, id string) (json.RawMessage, error) {
	return c.query(ctx, "/query/get_entity", map[string]interface{}{
		"name": name,
		"id":   id,
	})
}

// GetEntities возвращает набор сущностей по списку id.
func (c *Client) GetEntities(ctx context.Context, name string, ids []string) (json.RawMessage, error) {
	return c.query(ctx, "/query/get_entities", map[string]interface{}{
		"name": name,
		"ids":  ids,
	})
}

// queryEnvelope — конверт ответа read-model. Поля взаимоисключающие.
type queryEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func (c *Client) query(ctx context.Context, path string, body map[string]interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, domain.NewReadModelError(fmt.Errorf("marshal query: %w", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewReadModelError(fmt.Errorf("build query request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewReadModelError(fmt.Errorf("query timed out after %s", c.timeout))
		}
		return nil, domain.NewReadModelError(err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(log.Fields{
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("read-model query done")

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewReadModelError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var envelope queryEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, domain.NewReadModelError(fmt.Errorf("decode response: %w", err))
	}
	if envelope.Error != "" {
		// Текст ошибки read-model проходит к вызывающему как есть,
		// суффикс источника добавляет UpstreamError.
		return nil, domain.NewReadModelError(errors.New(envelope.Error))
	}

	return envelope.Result, nil
}

// Ping проверяет доступность read-model (для health checks).
func (c *Client) Ping(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("read-model health status %d", resp.StatusCode)
	}
	return nil
}

var _ domain.ReadModelGateway = (*Client)(nil)
