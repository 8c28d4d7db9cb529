// Package stripe reports metered usage to Stripe over its REST API.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	billingdomain "github.com/fixkit/fixkit/internal/billing/domain"
	"github.com/google/uuid"
)

const baseURL = "https://api.stripe.com"

type Provider struct {
	apiKey string
	client *http.Client
}

func New(apiKey string) *Provider {
	return &Provider{
		apiKey: strings.TrimSpace(apiKey),
		client: &http.Client{Timeout: 12 * time.Second},
	}
}

type subscriptionItemList struct {
	Data []struct {
		ID    string `json:"id"`
		Price struct {
			Recurring struct {
				UsageType string `json:"usage_type"`
			} `json:"recurring"`
			Metadata map[string]string `json:"metadata"`
		} `json:"price"`
	} `json:"data"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) MeteredItems(ctx context.Context, subscriptionID string) ([]billingdomain.MeteredItem, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, nil
	}

	query := url.Values{}
	query.Set("subscription", subscriptionID)
	query.Set("limit", "100")

	body, err := p.doRequest(ctx, http.MethodGet, "/v1/subscription_items?"+query.Encode(), nil, "")
	if err != nil {
		return nil, err
	}

	var list subscriptionItemList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, billingdomain.ErrRequestFailed
	}

	items := make([]billingdomain.MeteredItem, 0, len(list.Data))
	for _, item := range list.Data {
		if item.Price.Recurring.UsageType != "metered" {
			continue
		}
		metric := strings.TrimSpace(item.Price.Metadata["metric"])
		switch metric {
		case billingdomain.MetricAPICalls, billingdomain.MetricStorageMB:
			items = append(items, billingdomain.MeteredItem{ItemID: item.ID, Metric: metric})
		}
	}
	return items, nil
}

func (p *Provider) ReportUsage(ctx context.Context, itemID string, quantity int64, at time.Time) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return billingdomain.ErrRequestFailed
	}

	values := url.Values{}
	values.Set("quantity", strconv.FormatInt(quantity, 10))
	values.Set("timestamp", strconv.FormatInt(at.UTC().Unix(), 10))
	values.Set("action", "increment")

	_, err := p.doRequest(
		ctx,
		http.MethodPost,
		"/v1/subscription_items/"+itemID+"/usage_records",
		values,
		uuid.NewString(),
	)
	return err
}

func (p *Provider) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
) ([]byte, error) {
	if p.apiKey == "" {
		return nil, billingdomain.ErrNotConfigured
	}

	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return nil, billingdomain.ErrRequestFailed
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			return nil, billingdomain.ErrRequestFailed
		}
		return nil, errors.New(message)
	}

	return io.ReadAll(resp.Body)
}
