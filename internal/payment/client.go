package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/campuseats/canteen/internal/models"
	"github.com/google/uuid"
)

// default retry-after when the gateway omits the header
const delaySeconds = 60

// Client asks the payment gateway for the settlement state of an order.
// Order creation and signature verification happen on the gateway side;
// this client only reads the outcome.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates new payment Client instance
func NewClient(baseURL string) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL: baseURL,
	}
}

type paymentResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// GetOrderPayment returns the gateway payment state for an order
// 200 — статус платежа получен.
// 204 — платёж по заказу не зарегистрирован.
// 429 — превышено количество запросов к сервису.
// 500 — внутренняя ошибка сервера.
func (c *Client) GetOrderPayment(ctx context.Context, orderID uuid.UUID) (string, error) {
	// GET /api/payments/{order_id}
	url, err := url.JoinPath(c.baseURL, "api", "payments", orderID.String())
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return "", err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		payResp := paymentResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&payResp); err != nil {
			return "", err
		}
		return payResp.Status, nil
	case http.StatusNoContent:
		return models.PaymentStatusPending, nil
	case http.StatusTooManyRequests:
		t := delaySeconds
		if val := resp.Header.Get("Retry-After"); val != "" {
			if parsed, err := strconv.Atoi(val); err == nil {
				t = parsed
			}
		}
		return "", models.NewTooManyRequestsError(time.Duration(t) * time.Second)
	case http.StatusInternalServerError:
		return "", models.ErrInternalError
	default:
		return "", models.ErrInternalError
	}
}
