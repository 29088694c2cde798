package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MollieService handles payment API interactions
type MollieService interface {
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*PaymentResponse, error)
	GetPayment(ctx context.Context, paymentID string) (*PaymentResponse, error)
	CancelPayment(ctx context.Context, paymentID string) (*PaymentResponse, error)
}

type mollieService struct {
	apiKey      string
	baseURL     string
	redirectURL string
	http        *http.Client
}

type CreatePaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
}

type PaymentResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	PaidAt      string `json:"paid_at,omitempty"`
}

// molliePayment mirrors the provider's payment resource
type molliePayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount struct {
		Currency string `json:"currency"`
		Value    string `json:"value"`
	} `json:"amount"`
	PaidAt string `json:"paidAt,omitempty"`
	Links  struct {
		Checkout struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
}

func NewMollieService(apiKey, redirectURL string) MollieService {
	return &mollieService{
		apiKey:      apiKey,
		baseURL:     "https://api.mollie.com/v2",
		redirectURL: redirectURL,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *mollieService) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*PaymentResponse, error) {
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	body := map[string]interface{}{
		"amount": map[string]string{
			"currency": "EUR",
			"value":    fmt.Sprintf("%d.%02d", req.AmountCents/100, req.AmountCents%100),
		},
		"description": req.Description,
		"redirectUrl": s.redirectURL,
		"metadata": map[string]string{
			"reference": req.Reference,
		},
	}

	data, err := s.makeRequest(ctx, http.MethodPost, "/payments", body)
	if err != nil {
		return nil, err
	}
	return parsePayment(data)
}

func (s *mollieService) GetPayment(ctx context.Context, paymentID string) (*PaymentResponse, error) {
	data, err := s.makeRequest(ctx, http.MethodGet, "/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}
	return parsePayment(data)
}

func (s *mollieService) CancelPayment(ctx context.Context, paymentID string) (*PaymentResponse, error) {
	data, err := s.makeRequest(ctx, http.MethodDelete, "/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}
	return parsePayment(data)
}

func parsePayment(data []byte) (*PaymentResponse, error) {
	var payment molliePayment
	if err := json.Unmarshal(data, &payment); err != nil {
		return nil, fmt.Errorf("failed to parse payment response: %w", err)
	}
	return &PaymentResponse{
		ID:          payment.ID,
		Status:      payment.Status,
		CheckoutURL: payment.Links.Checkout.Href,
		PaidAt:      payment.PaidAt,
	}, nil
}

func (s *mollieService) makeRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("payment API returned %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
