package mapper

import (
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/vibast-solutions/ms-go-remittance/app/auth"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/service"
	"github.com/vibast-solutions/ms-go-remittance/app/types"
)

func PaymentRecordToResponse(item *entity.PaymentRecord) *types.PaymentRecordResponse {
	if item == nil {
		return nil
	}

	return &types.PaymentRecordResponse{
		ID:              item.ID,
		Provider:        item.Provider,
		SessionID:       derefString(item.SessionID),
		PaymentIntentID: derefString(item.PaymentIntentID),
		Status:          item.Status,
		Amount:          item.Amount,
		Currency:        item.Currency,
		UserID:          item.UserID,
		ProcessedAt:     utcTime(item.ProcessedAt),
		Metadata:        cloneMetadata(item.Metadata),
		CreatedAt:       item.CreatedAt.UTC(),
		UpdatedAt:       item.UpdatedAt.UTC(),
	}
}

func PaymentRecordsToResponse(items []*entity.PaymentRecord, limit, offset int32) *types.ListPaymentsResponse {
	payments := make([]types.PaymentRecordResponse, 0, len(items))
	for _, item := range items {
		if mapped := PaymentRecordToResponse(item); mapped != nil {
			payments = append(payments, *mapped)
		}
	}
	return &types.ListPaymentsResponse{Payments: payments, Limit: limit, Offset: offset}
}

func PaymentEventsToResponse(items []*entity.PaymentEvent) []types.PaymentEventResponse {
	return lo.FilterMap(items, func(item *entity.PaymentEvent, _ int) (types.PaymentEventResponse, bool) {
		if item == nil {
			return types.PaymentEventResponse{}, false
		}
		return types.PaymentEventResponse{
			EventType: item.EventType,
			OldStatus: item.OldStatus,
			NewStatus: item.NewStatus,
			EventID:   item.ProviderEventID,
			CreatedAt: item.CreatedAt.UTC(),
		}, true
	})
}

func CheckoutSessionToResponse(result *service.CheckoutSessionResult) *types.CheckoutSessionResponse {
	return &types.CheckoutSessionResponse{
		ID:      result.SessionID,
		URL:     result.URL,
		OrderID: result.OrderID,
	}
}

func PaymentIntentToResponse(result *service.PaymentIntentResult) *types.PaymentIntentResponse {
	return &types.PaymentIntentResponse{
		ID:           result.ID,
		ClientSecret: result.ClientSecret,
		Status:       result.Status,
		Livemode:     result.Livemode,
		ServerMode:   result.ServerMode,
		Reused:       result.Reused,
	}
}

func CancelCheckoutToResponse(result *service.CancelCheckoutResult) *types.CancelCheckoutResponse {
	resp := &types.CancelCheckoutResponse{
		AlreadyProcessed: result.AlreadyProcessed,
		Message:          "checkout canceled",
	}
	if result.Record != nil {
		resp.Status = result.Record.Status
	}
	if result.AlreadyProcessed {
		resp.Message = "payment already processed"
	}
	return resp
}

// SessionViewToResponse includes the transfer, with its code shown under the usual
// visibility rule for the viewer.
func SessionViewToResponse(view *service.SessionView, viewer *auth.Identity) *types.SessionResponse {
	record := view.Record
	return &types.SessionResponse{
		Status:      record.Status,
		Amount:      record.Amount,
		Currency:    record.Currency,
		ProcessedAt: utcTime(record.ProcessedAt),
		Metadata:    cloneMetadata(record.Metadata),
		TransferID:  transferIDOf(record),
		Transfer:    TransferToResponse(view.Transfer, viewer),
		Events:      PaymentEventsToResponse(view.Events),
	}
}

func ReprocessToResponse(result *service.ReprocessResult) *types.ReprocessResponse {
	return &types.ReprocessResponse{
		Status:      result.Record.Status,
		ProcessedAt: utcTime(result.Record.ProcessedAt),
		TransferID:  transferIDOf(result.Record),
		Finalized:   result.Finalized,
		Reason:      result.Reason,
	}
}

func transferIDOf(record *entity.PaymentRecord) *uint64 {
	id, err := strconv.ParseUint(record.MetaValue(entity.MetaTransferID), 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func utcTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := v.UTC()
	return &t
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	return lo.Assign(src)
}
