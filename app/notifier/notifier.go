package notifier

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Notifier delivers transfer notices to the sender.
type Notifier interface {
	TransferCreated(ctx context.Context, notice TransferNotice) error
	TransferWithdrawn(ctx context.Context, notice TransferNotice) error
}

// TransferNotice is what a transfer e-mail renders.
type TransferNotice struct {
	To              string
	TransferID      uint64
	Code            string
	BeneficiaryName string
	Principal       decimal.Decimal
	Fee             decimal.Decimal
	TotalTTC        decimal.Decimal
	AmountGNF       int64
	ReceptionMode   string
}

// LogNotifier records notices in the log instead of sending them. It is used when no SMTP
// host is configured.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) TransferCreated(_ context.Context, notice TransferNotice) error {
	n.logger.WithFields(logrus.Fields{
		"to":          notice.To,
		"transfer_id": notice.TransferID,
	}).Info("Transfer created notification skipped, mail is not configured")
	return nil
}

func (n *LogNotifier) TransferWithdrawn(_ context.Context, notice TransferNotice) error {
	n.logger.WithFields(logrus.Fields{
		"to":          notice.To,
		"transfer_id": notice.TransferID,
	}).Info("Transfer withdrawn notification skipped, mail is not configured")
	return nil
}
