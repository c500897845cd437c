package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var transferStatuses = []string{"envoyé", "retiré", "annulé", "bloqué"}

type SendTransferRequest struct {
	BeneficiaryId     uint64
	ExchangeRateId    uint64
	Amount            string
	ReceptionMode     string
	RecipientFullName string
	RecipientPhone    string
	District          string
}

func (r *SendTransferRequest) GetBeneficiaryId() uint64 { return r.BeneficiaryId }
func (r *SendTransferRequest) GetExchangeRateId() uint64 { return r.ExchangeRateId }
func (r *SendTransferRequest) GetAmount() string { return r.Amount }
func (r *SendTransferRequest) GetReceptionMode() string { return r.ReceptionMode }
func (r *SendTransferRequest) GetRecipientFullName() string { return r.RecipientFullName }
func (r *SendTransferRequest) GetRecipientPhone() string { return r.RecipientPhone }
func (r *SendTransferRequest) GetDistrict() string { return r.District }

func NewSendTransferRequestFromContext(ctx echo.Context) (*SendTransferRequest, error) {
	var body struct {
		BeneficiaryId     uint64      `json:"beneficiaire_id"`
		ExchangeRateId    uint64      `json:"taux_echange_id"`
		Amount            json.Number `json:"montant_envoie"`
		ReceptionMode     string      `json:"mode_reception"`
		RecipientFullName string      `json:"receveur_nom_complet"`
		RecipientPhone    string      `json:"receveur_phone"`
		District          string      `json:"quartier"`
	}
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &SendTransferRequest{
		BeneficiaryId:     body.BeneficiaryId,
		ExchangeRateId:    body.ExchangeRateId,
		Amount:            strings.TrimSpace(body.Amount.String()),
		ReceptionMode:     strings.TrimSpace(body.ReceptionMode),
		RecipientFullName: strings.TrimSpace(body.RecipientFullName),
		RecipientPhone:    strings.TrimSpace(body.RecipientPhone),
		District:          strings.TrimSpace(body.District),
	}, nil
}

func (r *SendTransferRequest) Validate() error {
	if r.GetBeneficiaryId() == 0 {
		return errors.New("beneficiaire_id is required")
	}
	if r.GetExchangeRateId() == 0 {
		return errors.New("taux_echange_id is required")
	}
	amount, err := decimal.NewFromString(r.GetAmount())
	if err != nil || !amount.IsPositive() {
		return errors.New("montant_envoie must be a positive amount")
	}
	return nil
}

type TransferIdRequest struct {
	Id uint64
}

func (r *TransferIdRequest) GetId() uint64 { return r.Id }

func NewTransferIdRequestFromContext(ctx echo.Context) (*TransferIdRequest, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param("id")), 10, 64)
	if err != nil {
		return nil, errors.New("invalid transfer id")
	}
	return &TransferIdRequest{Id: id}, nil
}

func (r *TransferIdRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid transfer id")
	}
	return nil
}

type TransferCodeRequest struct {
	Code string `json:"code"`
}

func (r *TransferCodeRequest) GetCode() string { return r.Code }

// NewTransferCodeRequestFromContext reads the code from the route, else from the body.
func NewTransferCodeRequestFromContext(ctx echo.Context) (*TransferCodeRequest, error) {
	if code := strings.TrimSpace(ctx.Param("code")); code != "" {
		return &TransferCodeRequest{Code: strings.ToUpper(code)}, nil
	}

	var body TransferCodeRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.Code = strings.ToUpper(strings.TrimSpace(body.Code))
	return &body, nil
}

func (r *TransferCodeRequest) Validate() error {
	if r.GetCode() == "" {
		return errors.New("code is required")
	}
	return nil
}

type ListTransfersRequest struct {
	Status        string
	BeneficiaryId uint64
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	MinAmount     string
	MaxAmount     string
	Limit         int32
	Offset        int32
}

func (r *ListTransfersRequest) GetStatus() string { return r.Status }
func (r *ListTransfersRequest) GetBeneficiaryId() uint64 { return r.BeneficiaryId }
func (r *ListTransfersRequest) GetCreatedFrom() *time.Time { return r.CreatedFrom }
func (r *ListTransfersRequest) GetCreatedTo() *time.Time { return r.CreatedTo }
func (r *ListTransfersRequest) GetMinAmount() string { return r.MinAmount }
func (r *ListTransfersRequest) GetMaxAmount() string { return r.MaxAmount }
func (r *ListTransfersRequest) GetLimit() int32 { return r.Limit }
func (r *ListTransfersRequest) GetOffset() int32 { return r.Offset }

func NewListTransfersRequestFromContext(ctx echo.Context) (*ListTransfersRequest, error) {
	req := &ListTransfersRequest{
		Status:    strings.TrimSpace(ctx.QueryParam("statut")),
		MinAmount: strings.TrimSpace(ctx.QueryParam("montant_min")),
		MaxAmount: strings.TrimSpace(ctx.QueryParam("montant_max")),
	}

	if raw := strings.TrimSpace(ctx.QueryParam("beneficiaire_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid beneficiaire_id: %w", err)
		}
		req.BeneficiaryId = id
	}

	var err error
	if req.CreatedFrom, err = parseDateParam(ctx.QueryParam("date_debut"), false); err != nil {
		return nil, fmt.Errorf("invalid date_debut: %w", err)
	}
	if req.CreatedTo, err = parseDateParam(ctx.QueryParam("date_fin"), true); err != nil {
		return nil, fmt.Errorf("invalid date_fin: %w", err)
	}
	if req.Limit, req.Offset, err = parsePagination(ctx); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *ListTransfersRequest) Validate() error {
	if err := validatePagination(&r.Limit, r.Offset); err != nil {
		return err
	}
	if r.GetStatus() != "" && !lo.Contains(transferStatuses, r.GetStatus()) {
		return errors.New("invalid statut")
	}
	for field, raw := range map[string]string{"montant_min": r.GetMinAmount(), "montant_max": r.GetMaxAmount()} {
		if raw == "" {
			continue
		}
		if _, err := decimal.NewFromString(raw); err != nil {
			return fmt.Errorf("%s must be an amount", field)
		}
	}
	if r.CreatedFrom != nil && r.CreatedTo != nil && r.CreatedFrom.After(*r.CreatedTo) {
		return errors.New("date_debut must not be after date_fin")
	}
	return nil
}

// UpdateTransferContactRequest carries only the fields present in the body.
type UpdateTransferContactRequest struct {
	Reference         string  `json:"-"`
	RecipientFullName *string `json:"receveur_nom_complet"`
	RecipientPhone    *string `json:"receveur_phone"`
	District          *string `json:"quartier"`
}

func (r *UpdateTransferContactRequest) GetReference() string { return r.Reference }
func (r *UpdateTransferContactRequest) GetRecipientFullName() *string { return r.RecipientFullName }
func (r *UpdateTransferContactRequest) GetRecipientPhone() *string { return r.RecipientPhone }
func (r *UpdateTransferContactRequest) GetDistrict() *string { return r.District }

func NewUpdateTransferContactRequestFromContext(ctx echo.Context) (*UpdateTransferContactRequest, error) {
	var body UpdateTransferContactRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Reference = strings.TrimSpace(ctx.Param("id"))
	return &body, nil
}

func (r *UpdateTransferContactRequest) Validate() error {
	if r.GetReference() == "" {
		return errors.New("transfer id or code is required")
	}
	if r.RecipientFullName == nil && r.RecipientPhone == nil && r.District == nil {
		return errors.New("nothing to update")
	}
	if r.RecipientFullName != nil && len(*r.RecipientFullName) > 255 {
		return errors.New("receveur_nom_complet is too long")
	}
	if r.RecipientPhone != nil && len(*r.RecipientPhone) > 32 {
		return errors.New("receveur_phone is too long")
	}
	return nil
}

// parseDateParam accepts YYYY-MM-DD or RFC 3339. A bare end date covers the whole day.
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}
