package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vansima/storefront/internal/provider"
)

// VerifyWebhook checks the Stripe-Signature header against the raw payload.
// The header carries a timestamp and one or more v1 signatures:
//
//	t=1712345678,v1=5257a869e7...
//
// Each v1 value is HMAC-SHA256 over "<timestamp>.<payload>" keyed with the
// webhook secret. The timestamp must be within the configured tolerance to
// blunt replay of captured notifications.
func (c *Client) VerifyWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	ts, sigs, err := parseSignatureHeader(signature)
	if err != nil {
		return nil, err
	}

	age := c.now().Sub(time.Unix(ts, 0))
	if age > c.tolerance || age < -c.tolerance {
		return nil, fmt.Errorf("timestamp outside the tolerance zone")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, sig := range sigs {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, fmt.Errorf("no signatures found matching the expected signature for payload")
	}

	return parseEvent(payload)
}

// parseSignatureHeader splits the comma-separated scheme pairs out of the
// signature header.
func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, fmt.Errorf("missing signature header")
	}

	var (
		ts   int64 = -1
		sigs []string
	)
	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return 0, nil, fmt.Errorf("unable to extract timestamp and signatures from header")
		}
		switch parts[0] {
		case "t":
			v, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("invalid timestamp in signature header")
			}
			ts = v
		case "v1":
			sigs = append(sigs, parts[1])
		}
		// Unknown schemes (v0 test-mode signatures included) are ignored.
	}

	if ts < 0 || len(sigs) == 0 {
		return 0, nil, fmt.Errorf("unable to extract timestamp and signatures from header")
	}
	return ts, sigs, nil
}

// parseEvent decodes a verified notification payload.
func parseEvent(payload []byte) (*provider.WebhookEvent, error) {
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID              string `json:"id"`
				CustomerDetails struct {
					Email string `json:"email"`
				} `json:"customer_details"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	return &provider.WebhookEvent{
		ID:            raw.ID,
		Type:          raw.Type,
		SessionID:     raw.Data.Object.ID,
		CustomerEmail: raw.Data.Object.CustomerDetails.Email,
	}, nil
}
