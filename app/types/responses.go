package types

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type CheckoutSessionResponse struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	OrderID string `json:"order_id"`
}

type PaymentIntentResponse struct {
	ID           string `json:"id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	Status       string `json:"status"`
	Livemode     bool   `json:"livemode"`
	ServerMode   string `json:"server_mode"`
	Reused       bool   `json:"reused,omitempty"`
}

type CancelCheckoutResponse struct {
	Status           string `json:"status"`
	AlreadyProcessed bool   `json:"already_processed"`
	Message          string `json:"message"`
}

type PaymentRecordResponse struct {
	ID              uint64            `json:"id"`
	Provider        string            `json:"provider"`
	SessionID       string            `json:"session_id,omitempty"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	Status          string            `json:"status"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	UserID          *uint64           `json:"user_id,omitempty"`
	ProcessedAt     *time.Time        `json:"processed_at"`
	Metadata        map[string]string `json:"metadata"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type ListPaymentsResponse struct {
	Payments []PaymentRecordResponse `json:"payments"`
	Limit    int32                   `json:"limit"`
	Offset   int32                   `json:"offset"`
}

type PaymentEventResponse struct {
	EventType string    `json:"event_type"`
	OldStatus *string   `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status"`
	EventID   *string   `json:"event_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionResponse struct {
	Status      string                 `json:"status"`
	Amount      int64                  `json:"amount"`
	Currency    string                 `json:"currency"`
	ProcessedAt *time.Time             `json:"processed_at"`
	Metadata    map[string]string      `json:"metadata"`
	TransferID  *uint64                `json:"transfert_id"`
	Transfer    *TransferResponse      `json:"transfert"`
	Events      []PaymentEventResponse `json:"events,omitempty"`
}

type ReprocessResponse struct {
	Status      string     `json:"status"`
	ProcessedAt *time.Time `json:"processed_at"`
	TransferID  *uint64    `json:"transfert_id"`
	Finalized   bool       `json:"finalized"`
	Reason      string     `json:"reason,omitempty"`
}

// TransferResponse keeps the field names clients of the remittance API already use.
// Code is omitted when the viewer may not see it.
type TransferResponse struct {
	ID                uint64     `json:"id"`
	UserID            *uint64    `json:"user_id"`
	BeneficiaryID     uint64     `json:"beneficiaire_id"`
	SourceCurrencyID  uint64     `json:"devise_source_id"`
	TargetCurrencyID  uint64     `json:"devise_cible_id"`
	ExchangeRateID    uint64     `json:"taux_echange_id"`
	AppliedRate       int64      `json:"taux_applique"`
	Principal         string     `json:"montant_envoie"`
	Fee               string     `json:"frais"`
	TotalTTC          string     `json:"total_ttc"`
	AmountGNF         int64      `json:"montant_gnf"`
	TotalGNF          int64      `json:"total_gnf"`
	Status            string     `json:"statut"`
	ReceptionMode     string     `json:"mode_reception"`
	Code              string     `json:"code,omitempty"`
	RecipientFullName *string    `json:"receveur_nom_complet"`
	RecipientPhone    *string    `json:"receveur_phone"`
	District          *string    `json:"quartier"`
	WithdrawnAt       *time.Time `json:"withdrawn_at,omitempty"`
	CanceledAt        *time.Time `json:"canceled_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type ListTransfersResponse struct {
	Transfers []TransferResponse `json:"transferts"`
	Limit     int32              `json:"limit"`
	Offset    int32              `json:"offset"`
}
