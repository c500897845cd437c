package mapper

import (
	"github.com/vibast-solutions/ms-go-remittance/app/auth"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/types"
)

// TransferToResponse hides the withdrawal code unless the viewer may see it.
func TransferToResponse(item *entity.Transfer, viewer *auth.Identity) *types.TransferResponse {
	if item == nil {
		return nil
	}

	resp := &types.TransferResponse{
		ID:                item.ID,
		UserID:            item.UserID,
		BeneficiaryID:     item.BeneficiaryID,
		SourceCurrencyID:  item.SourceCurrencyID,
		TargetCurrencyID:  item.TargetCurrencyID,
		ExchangeRateID:    item.ExchangeRateID,
		AppliedRate:       item.AppliedRate,
		Principal:         item.Principal.StringFixed(2),
		Fee:               item.Fee.StringFixed(2),
		TotalTTC:          item.TotalTTC.StringFixed(2),
		AmountGNF:         item.AmountGNF,
		TotalGNF:          item.TotalGNF,
		Status:            item.Status,
		ReceptionMode:     item.ReceptionMode,
		RecipientFullName: item.RecipientFullName,
		RecipientPhone:    item.RecipientPhone,
		District:          item.District,
		WithdrawnAt:       utcTime(item.WithdrawnAt),
		CanceledAt:        utcTime(item.CanceledAt),
		CreatedAt:         item.CreatedAt.UTC(),
		UpdatedAt:         item.UpdatedAt.UTC(),
	}

	var viewerID *uint64
	privileged := false
	if viewer != nil {
		id := viewer.UserID
		viewerID = &id
		privileged = viewer.Privileged
	}
	if item.CodeVisibleTo(viewerID, privileged) {
		resp.Code = item.Code
	}
	return resp
}

func TransfersToResponse(items []*entity.Transfer, viewer *auth.Identity, limit, offset int32) *types.ListTransfersResponse {
	transfers := make([]types.TransferResponse, 0, len(items))
	for _, item := range items {
		if mapped := TransferToResponse(item, viewer); mapped != nil {
			transfers = append(transfers, *mapped)
		}
	}
	return &types.ListTransfersResponse{Transfers: transfers, Limit: limit, Offset: offset}
}
