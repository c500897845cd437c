package types

import (
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

const (
	defaultListLimit = int32(100)
	maxListLimit     = int32(500)
)

var paymentStatuses = []string{"pending", "processing", "succeeded", "failed", "canceled", "refunded"}

type CreateCheckoutSessionRequest struct {
	Provider      string            `json:"-"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	SuccessUrl    string            `json:"success_url"`
	CancelUrl     string            `json:"cancel_url"`
	CustomerEmail string            `json:"customer_email"`
	OrderId       string            `json:"order_id"`
	Metadata      map[string]string `json:"-"`
}

func (r *CreateCheckoutSessionRequest) GetProvider() string { return r.Provider }
func (r *CreateCheckoutSessionRequest) GetAmount() int64 { return r.Amount }
func (r *CreateCheckoutSessionRequest) GetCurrency() string { return r.Currency }
func (r *CreateCheckoutSessionRequest) GetSuccessUrl() string { return r.SuccessUrl }
func (r *CreateCheckoutSessionRequest) GetCancelUrl() string { return r.CancelUrl }
func (r *CreateCheckoutSessionRequest) GetCustomerEmail() string { return r.CustomerEmail }
func (r *CreateCheckoutSessionRequest) GetOrderId() string { return r.OrderId }
func (r *CreateCheckoutSessionRequest) GetMetadata() map[string]string { return r.Metadata }

func NewCreateCheckoutSessionRequestFromContext(ctx echo.Context) (*CreateCheckoutSessionRequest, error) {
	var body struct {
		CreateCheckoutSessionRequest
		RawMetadata map[string]interface{} `json:"metadata"`
	}
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	req := body.CreateCheckoutSessionRequest
	req.Provider = strings.ToLower(strings.TrimSpace(ctx.Param("provider")))
	req.Currency = strings.ToLower(strings.TrimSpace(req.Currency))
	req.SuccessUrl = strings.TrimSpace(req.SuccessUrl)
	req.CancelUrl = strings.TrimSpace(req.CancelUrl)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.OrderId = strings.TrimSpace(req.OrderId)
	req.Metadata = stringifyMetadata(body.RawMetadata)

	return &req, nil
}

func (r *CreateCheckoutSessionRequest) Validate() error {
	if r.GetAmount() <= 0 {
		return errors.New("amount must be a positive integer in minor units")
	}
	if r.GetSuccessUrl() == "" {
		return errors.New("success_url is required")
	}
	if r.GetCancelUrl() == "" {
		return errors.New("cancel_url is required")
	}
	return validateEmail(r.GetCustomerEmail())
}

type CreatePaymentIntentRequest struct {
	Provider      string            `json:"-"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customer_email"`
	OrderId       string            `json:"order_id"`
	ForceNew      bool              `json:"force_new"`
	Metadata      map[string]string `json:"-"`
}

func (r *CreatePaymentIntentRequest) GetProvider() string { return r.Provider }
func (r *CreatePaymentIntentRequest) GetAmount() int64 { return r.Amount }
func (r *CreatePaymentIntentRequest) GetCurrency() string { return r.Currency }
func (r *CreatePaymentIntentRequest) GetCustomerEmail() string { return r.CustomerEmail }
func (r *CreatePaymentIntentRequest) GetOrderId() string { return r.OrderId }
func (r *CreatePaymentIntentRequest) GetForceNew() bool { return r.ForceNew }
func (r *CreatePaymentIntentRequest) GetMetadata() map[string]string { return r.Metadata }

func NewCreatePaymentIntentRequestFromContext(ctx echo.Context) (*CreatePaymentIntentRequest, error) {
	var body struct {
		CreatePaymentIntentRequest
		RawMetadata map[string]interface{} `json:"metadata"`
	}
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	req := body.CreatePaymentIntentRequest
	req.Provider = strings.ToLower(strings.TrimSpace(ctx.Param("provider")))
	req.Currency = strings.ToLower(strings.TrimSpace(req.Currency))
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.OrderId = strings.TrimSpace(req.OrderId)
	req.Metadata = stringifyMetadata(body.RawMetadata)

	return &req, nil
}

func (r *CreatePaymentIntentRequest) Validate() error {
	if r.GetAmount() <= 0 {
		return errors.New("amount must be a positive integer in minor units")
	}
	return validateEmail(r.GetCustomerEmail())
}

type CancelCheckoutRequest struct {
	Provider    string `json:"-"`
	OrderId     string `json:"order_id"`
	CancelToken string `json:"cancel_token"`
}

func (r *CancelCheckoutRequest) GetProvider() string { return r.Provider }
func (r *CancelCheckoutRequest) GetOrderId() string { return r.OrderId }
func (r *CancelCheckoutRequest) GetCancelToken() string { return r.CancelToken }

// NewCancelCheckoutRequestFromContext reads the body and falls back to the query string
// the provider cancel redirect carries.
func NewCancelCheckoutRequestFromContext(ctx echo.Context) (*CancelCheckoutRequest, error) {
	var body CancelCheckoutRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	body.Provider = strings.ToLower(strings.TrimSpace(ctx.Param("provider")))
	body.OrderId = strings.TrimSpace(body.OrderId)
	body.CancelToken = strings.TrimSpace(body.CancelToken)
	if body.OrderId == "" {
		body.OrderId = strings.TrimSpace(ctx.QueryParam("order_id"))
	}
	if body.CancelToken == "" {
		body.CancelToken = strings.TrimSpace(ctx.QueryParam("cancel_token"))
	}

	return &body, nil
}

func (r *CancelCheckoutRequest) Validate() error {
	if r.GetOrderId() == "" {
		return errors.New("order_id is required")
	}
	if r.GetCancelToken() == "" {
		return errors.New("cancel_token is required")
	}
	return nil
}

type SessionRequest struct {
	Provider  string
	SessionId string
}

func (r *SessionRequest) GetProvider() string { return r.Provider }
func (r *SessionRequest) GetSessionId() string { return r.SessionId }

func NewSessionRequestFromContext(ctx echo.Context) (*SessionRequest, error) {
	return &SessionRequest{
		Provider:  strings.ToLower(strings.TrimSpace(ctx.Param("provider"))),
		SessionId: strings.TrimSpace(ctx.Param("sessionId")),
	}, nil
}

func (r *SessionRequest) Validate() error {
	if r.GetSessionId() == "" {
		return errors.New("session id is required")
	}
	return nil
}

type ListPaymentsRequest struct {
	Provider    string
	Status      string
	OrderId     string
	UserId      uint64
	Unprocessed bool
	Limit       int32
	Offset      int32
}

func (r *ListPaymentsRequest) GetProvider() string { return r.Provider }
func (r *ListPaymentsRequest) GetStatus() string { return r.Status }
func (r *ListPaymentsRequest) GetOrderId() string { return r.OrderId }
func (r *ListPaymentsRequest) GetUserId() uint64 { return r.UserId }
func (r *ListPaymentsRequest) GetUnprocessed() bool { return r.Unprocessed }
func (r *ListPaymentsRequest) GetLimit() int32 { return r.Limit }
func (r *ListPaymentsRequest) GetOffset() int32 { return r.Offset }

func NewListPaymentsRequestFromContext(ctx echo.Context) (*ListPaymentsRequest, error) {
	req := &ListPaymentsRequest{
		Provider: strings.ToLower(strings.TrimSpace(ctx.QueryParam("provider"))),
		Status:   strings.ToLower(strings.TrimSpace(ctx.QueryParam("status"))),
		OrderId:  strings.TrimSpace(ctx.QueryParam("order_id")),
		Limit:    defaultListLimit,
	}

	if raw := strings.TrimSpace(ctx.QueryParam("user_id")); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user_id: %w", err)
		}
		req.UserId = userID
	}
	if raw := strings.TrimSpace(ctx.QueryParam("unprocessed")); raw != "" {
		unprocessed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid unprocessed: %w", err)
		}
		req.Unprocessed = unprocessed
	}

	var err error
	if req.Limit, req.Offset, err = parsePagination(ctx); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *ListPaymentsRequest) Validate() error {
	if err := validatePagination(&r.Limit, r.Offset); err != nil {
		return err
	}
	if r.GetStatus() != "" && !lo.Contains(paymentStatuses, r.GetStatus()) {
		return errors.New("invalid status")
	}
	return nil
}

type WebhookRequest struct {
	Provider  string
	Signature string
	Payload   string
}

func (r *WebhookRequest) GetProvider() string { return r.Provider }
func (r *WebhookRequest) GetSignature() string { return r.Signature }
func (r *WebhookRequest) GetPayload() string { return r.Payload }

// NewWebhookRequestFromContext keeps the body byte-for-byte; the signature covers it.
func NewWebhookRequestFromContext(ctx echo.Context) (*WebhookRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	signature := strings.TrimSpace(ctx.Request().Header.Get("Stripe-Signature"))
	if signature == "" {
		signature = strings.TrimSpace(ctx.Request().Header.Get("X-Provider-Signature"))
	}

	return &WebhookRequest{
		Provider:  strings.ToLower(strings.TrimSpace(ctx.Param("provider"))),
		Signature: signature,
		Payload:   string(rawBody),
	}, nil
}

func (r *WebhookRequest) Validate() error {
	if r.GetSignature() == "" {
		return errors.New("provider signature is required")
	}
	if strings.TrimSpace(r.GetPayload()) == "" {
		return errors.New("payload is required")
	}
	return nil
}

func parsePagination(ctx echo.Context) (int32, int32, error) {
	limit := defaultListLimit
	offset := int32(0)
	if raw := strings.TrimSpace(ctx.QueryParam("limit")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid limit: %w", err)
		}
		limit = int32(value)
	}
	if raw := strings.TrimSpace(ctx.QueryParam("offset")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid offset: %w", err)
		}
		offset = int32(value)
	}
	return limit, offset, nil
}

func validatePagination(limit *int32, offset int32) error {
	if *limit == 0 {
		*limit = defaultListLimit
	}
	if *limit < 0 || *limit > maxListLimit {
		return fmt.Errorf("limit must be between 1 and %d", maxListLimit)
	}
	if offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("customer_email is invalid")
	}
	return nil
}

// stringifyMetadata flattens client metadata to the string map the provider accepts.
func stringifyMetadata(raw map[string]interface{}) map[string]string {
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		key = strings.TrimSpace(key)
		if key == "" || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			out[key] = strings.TrimSpace(v)
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(v)
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}
