package payos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// WebhookPayload is the gateway notification shape: {"data": {"orderCode",
// "status"}}. orderCode arrives as a JSON number but some gateway versions
// quote it, hence json.Number.
type WebhookPayload struct {
	Data struct {
		OrderCode json.Number `json:"orderCode"`
		Status    string      `json:"status"`
	} `json:"data"`
}

// HandleWebhook maps a gateway notification back to the local bill. The HTTP
// layer always acknowledges with {"success": true} per the gateway contract;
// any error returned here is recorded, never surfaced to the gateway.
func (c *Client) HandleWebhook(ctx context.Context, raw []byte) error {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("payos: malformed webhook payload: %w", err)
	}
	code, err := payload.Data.OrderCode.Int64()
	if err != nil {
		return fmt.Errorf("payos: bad order code %q: %w", payload.Data.OrderCode, err)
	}

	c.log.Info("gateway webhook received",
		zap.Int64("order_code", code),
		zap.String("status", payload.Data.Status))

	if !strings.EqualFold(payload.Data.Status, "PAID") {
		return nil
	}

	if _, _, err := c.bills.Settle(ctx, code); err != nil {
		return fmt.Errorf("payos: settle order code %d: %w", code, err)
	}
	return nil
}
