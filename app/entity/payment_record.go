package entity

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusSucceeded  = "succeeded"
	PaymentStatusFailed     = "failed"
	PaymentStatusCanceled   = "canceled"
	PaymentStatusRefunded   = "refunded"
)

const DefaultCurrency = "eur"

// Metadata keys shared between payment creation, webhook ingestion and finalization.
const (
	MetaOrderID       = "order_id"
	MetaCancelToken   = "cancel_token"
	MetaSource        = "source"
	MetaUserID        = "user_id"
	MetaBeneficiaryID = "beneficiaire_id"
	MetaRateID        = "taux_echange_id"
	MetaRateValue     = "taux_applique"
	MetaPrincipal     = "montant_envoie"
	MetaFeeOverride   = "frais_eur"
	MetaTotalOverride = "total_ttc"
	MetaReceptionMode = "mode_reception"
	MetaCustomerEmail = "customer_email"
	MetaLastEvent     = "last_event"
	MetaLivemode      = "livemode"
	MetaPaymentStatus = "payment_status"
	MetaTransferID    = "transfert_id"
	MetaInvoiceID     = "facture_id"
	MetaMergedInto    = "merged_into"
	MetaCanceledAt    = "canceled_at"
)

type PaymentRecord struct {
	ID uint64

	Provider          string
	ProviderPaymentID *string
	SessionID         *string
	PaymentIntentID   *string

	Status   string
	Amount   int64
	Currency string

	UserID *uint64

	Metadata map[string]string

	ProcessedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentPatch carries the fields a provider event may change on a record.
type PaymentPatch struct {
	Status          string
	Amount          *int64
	Currency        *string
	PaymentIntentID *string
	Metadata        map[string]string
}

func IsPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending,
		PaymentStatusProcessing,
		PaymentStatusSucceeded,
		PaymentStatusFailed,
		PaymentStatusCanceled,
		PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a record may move from one status to another.
// succeeded only ever moves to refunded, and refunded never moves.
func CanTransition(from, to string) bool {
	if !IsPaymentStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	switch from {
	case PaymentStatusSucceeded:
		return to == PaymentStatusRefunded
	case PaymentStatusRefunded:
		return false
	default:
		return true
	}
}

// Finalized reports whether a transfer was already issued for the record.
func (p *PaymentRecord) Finalized() bool {
	return p.ProcessedAt != nil || strings.TrimSpace(p.Metadata[MetaTransferID]) != ""
}

// Paid reports whether the customer was charged for the record.
func (p *PaymentRecord) Paid() bool {
	return p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusRefunded
}

// MergedInto returns the id of the session record that absorbed this twin, or 0.
func (p *PaymentRecord) MergedInto() uint64 {
	id, err := strconv.ParseUint(p.MetaValue(MetaMergedInto), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (p *PaymentRecord) MetaValue(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(p.Metadata[key])
}

// Merge applies a provider patch. Metadata is merged key by key and empty values never
// erase existing ones. A status the record cannot move to is dropped while the rest of
// the patch still applies. It returns true when the status was applied.
func (p *PaymentRecord) Merge(patch PaymentPatch) bool {
	if patch.PaymentIntentID != nil && *patch.PaymentIntentID != "" && p.PaymentIntentID == nil {
		id := *patch.PaymentIntentID
		p.PaymentIntentID = &id
	}
	if patch.Amount != nil && *patch.Amount > 0 {
		p.Amount = *patch.Amount
	}
	if patch.Currency != nil && strings.TrimSpace(*patch.Currency) != "" {
		p.Currency = strings.ToLower(strings.TrimSpace(*patch.Currency))
	}
	p.Metadata = MergeMetadata(p.Metadata, patch.Metadata)

	if patch.Status == "" {
		return false
	}
	if !CanTransition(p.Status, patch.Status) {
		return false
	}
	p.Status = patch.Status
	return true
}

// MergeTwin folds a twin record into p. The twin's amount and currency replace p's
// because the twin carries what was actually charged. Other values already on p win.
func (p *PaymentRecord) MergeTwin(twin *PaymentRecord) {
	if twin == nil || twin.ID == p.ID {
		return
	}

	p.Metadata = MergeMetadata(twin.Metadata, p.Metadata)
	delete(p.Metadata, MetaMergedInto)

	if p.PaymentIntentID == nil && twin.PaymentIntentID != nil {
		id := *twin.PaymentIntentID
		p.PaymentIntentID = &id
	}
	if twin.Amount > 0 {
		p.Amount = twin.Amount
	}
	if twin.Currency != "" {
		p.Currency = twin.Currency
	}
	if p.UserID == nil && twin.UserID != nil {
		userID := *twin.UserID
		p.UserID = &userID
	}
	if twin.Status == PaymentStatusSucceeded && CanTransition(p.Status, PaymentStatusSucceeded) {
		p.Status = PaymentStatusSucceeded
	}
	if p.ProcessedAt == nil && twin.ProcessedAt != nil {
		processedAt := *twin.ProcessedAt
		p.ProcessedAt = &processedAt
	}
}

// MergeMetadata returns base overwritten by every non-empty value of overlay.
func MergeMetadata(base, overlay map[string]string) map[string]string {
	filtered := lo.OmitByValues(overlay, []string{""})
	if base == nil {
		base = map[string]string{}
	}
	return lo.Assign(base, filtered)
}
