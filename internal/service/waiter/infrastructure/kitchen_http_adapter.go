package infrastructure

import (
	"context"

	"github.com/pkg/errors"

	"brigade/internal/contracts"
	"brigade/internal/pkg/httpclient"
)

const validatePath = "/internal/orders/validate"

// KitchenHTTPAdapter implements domain.OrderValidator over the kitchen's
// synchronous pre-check endpoint.
type KitchenHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewKitchenHTTPAdapter(client *httpclient.Client, baseURL string) *KitchenHTTPAdapter {
	return &KitchenHTTPAdapter{client: client, baseURL: baseURL}
}

func (a *KitchenHTTPAdapter) Validate(ctx context.Context, req *contracts.ValidateOrderRequest) (*contracts.ValidateOrderResponse, error) {
	var resp contracts.ValidateOrderResponse
	if err := a.client.PostJSON(ctx, a.baseURL+validatePath, req, &resp); err != nil {
		return nil, errors.Wrap(err, "call kitchen pre-check")
	}
	return &resp, nil
}
