// Package adnetwork предоставляет клиент серверного API рекламной сети
// и мост, отслеживающий готовность рекламного сервиса.
package adnetwork

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/coin-rewards/internal/rewards"
)

// Статусы показа, которые возвращает рекламная сеть.
const (
	ViewCompleted = "completed"
	ViewDismissed = "dismissed"
	ViewNoFill    = "no_fill"
)

// ErrNoFill помечает отказ, при котором ролик не начинался: сеть недоступна,
// ответила ошибкой или не нашла рекламу. После такого отказа можно попробовать
// следующего поставщика.
var ErrNoFill = errors.New("no ad from provider")

// Client инкапсулирует HTTP-взаимодействие с рекламной сетью.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ViewResult описывает ответ рекламной сети по одному показу.
type ViewResult struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// NewClient создаёт HTTP-клиент для обращения к рекламной сети по указанному адресу.
// Показ рекламы может длиться долго, поэтому таймаут рассчитан на полный ролик.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Ping проверяет, что рекламная сеть доступна и готова к показам.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.baseURL == "" {
		return rewards.ErrAdServiceUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", rewards.ErrAdServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", rewards.ErrAdServiceUnavailable, resp.StatusCode)
	}

	return nil
}

// ShowRewarded запрашивает показ ролика с вознаграждением и ждёт его окончания.
// Ответ 200 без тела означает досмотренный ролик; тело, если есть, должно
// содержать статус completed. Любой другой исход возвращается как ErrAdPlaybackFailed.
func (c *Client) ShowRewarded(ctx context.Context, userID int64) error {
	if c == nil || c.baseURL == "" {
		return rewards.ErrAdServiceUnavailable
	}

	url := fmt.Sprintf("%s/api/rewarded/%s", c.baseURL, strconv.FormatInt(userID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w: %v", rewards.ErrAdPlaybackFailed, ErrNoFill, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %w: unexpected status %d", rewards.ErrAdPlaybackFailed, ErrNoFill, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", rewards.ErrAdPlaybackFailed, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var result ViewResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("%w: decode response: %v", rewards.ErrAdPlaybackFailed, err)
	}

	switch result.Status {
	case ViewCompleted:
		return nil
	case ViewNoFill:
		return fmt.Errorf("%w: %w", rewards.ErrAdPlaybackFailed, ErrNoFill)
	default:
		return fmt.Errorf("%w: %s %s", rewards.ErrAdPlaybackFailed, result.Status, result.Reason)
	}
}
