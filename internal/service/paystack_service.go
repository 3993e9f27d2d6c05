package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dental-clinic-backend/config"

	"github.com/sirupsen/logrus"
)

// PaymentGateway initializes online transactions with the card processor.
// Amounts cross this boundary in minor currency units (kobo).
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, email string, amountMinor int64, metadata map[string]interface{}) (*InitializeResult, error)
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

func NewPaystackClient(cfg config.PaystackConfig, log *logrus.Logger) PaymentGateway {
	return &paystackClient{
		secretKey: cfg.SecretKey,
		baseURL:   cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type initializeRequest struct {
	Email    string                 `json:"email"`
	Amount   int64                  `json:"amount"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool             `json:"status"`
	Message string           `json:"message"`
	Data    InitializeResult `json:"data"`
}

func (c *paystackClient) InitializeTransaction(ctx context.Context, email string, amountMinor int64, metadata map[string]interface{}) (*InitializeResult, error) {
	payload, err := json.Marshal(initializeRequest{
		Email:    email,
		Amount:   amountMinor,
		Metadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call paystack initialize: %w", err)
	}
	defer resp.Body.Close()

	var body initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode paystack response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !body.Status {
		c.log.Warnf("Paystack initialize failed: status=%d message=%s", resp.StatusCode, body.Message)
		return nil, fmt.Errorf("paystack initialize failed: %s", body.Message)
	}

	return &body.Data, nil
}

// VerifyWebhookSignature checks the x-paystack-signature header: an HMAC-SHA512
// of the raw request body keyed with the shared secret, hex encoded.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
