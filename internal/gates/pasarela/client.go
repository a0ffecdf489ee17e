package pasarela

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Estados que la pasarela reporta para un cargo. Un pago "in_process"
// (fondos retenidos a la espera de compensación) libera el recurso igual
// que uno aprobado.
const (
	StatusApproved  = "approved"
	StatusInProcess = "in_process"
)

type ChargeRequest struct {
	Monto        decimal.Decimal
	Descripcion  string
	Token        string
	Installments int
	MethodID     string

	// Opcionales; solo se envían si están presentes.
	IssuerID             string
	IdentificationType   string
	IdentificationNumber string
}

type ChargeResult struct {
	ID           string
	Status       string
	StatusDetail string
}

// Accepted indica si el cargo habilita el aprovisionamiento.
func (r *ChargeResult) Accepted() bool {
	return r.Status == StatusApproved || r.Status == StatusInProcess
}

// Gateway es la capacidad de cobro que consume el motor de facturación.
// Un error de transporte significa "no se pudo cobrar, reintente"; un
// ChargeResult no aceptado significa rechazo explícito de la pasarela.
type Gateway interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
}

type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		http:        &http.Client{Timeout: timeout},
	}
}

type chargeBody struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	Token             string  `json:"token"`
	Installments      int     `json:"installments"`
	PaymentMethodID   string  `json:"payment_method_id"`
	IssuerID          string  `json:"issuer_id,omitempty"`
	Payer             *payer  `json:"payer,omitempty"`
}

type payer struct {
	Identification identification `json:"identification"`
}

type identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type chargeResponse struct {
	ID           json.Number `json:"id"`
	Status       string      `json:"status"`
	StatusDetail string      `json:"status_detail"`
	Message      string      `json:"message"`
}

func (c *Client) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	monto, _ := req.Monto.Round(2).Float64()
	body := chargeBody{
		TransactionAmount: monto,
		Description:       req.Descripcion,
		Token:             req.Token,
		Installments:      req.Installments,
		PaymentMethodID:   req.MethodID,
		IssuerID:          req.IssuerID,
	}
	if req.IdentificationType != "" && req.IdentificationNumber != "" {
		body.Payer = &payer{Identification: identification{
			Type:   req.IdentificationType,
			Number: req.IdentificationNumber,
		}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("charge request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode charge response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, decoded.Message)
	}

	result := &ChargeResult{
		ID:           decoded.ID.String(),
		Status:       decoded.Status,
		StatusDetail: decoded.StatusDetail,
	}
	if result.StatusDetail == "" && decoded.Message != "" {
		result.StatusDetail = decoded.Message
	}
	return result, nil
}
