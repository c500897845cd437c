package notifier

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

var ErrNoRecipient = errors.New("notification has no recipient")

var (
	createdTemplate = template.Must(template.New("created").Parse(`<p>Bonjour,</p>
<p>Votre transfert n°{{.TransferID}} vers {{.BeneficiaryName}} a bien été enregistré.</p>
<ul>
<li>Montant envoyé : {{.Principal.StringFixed 2}} EUR</li>
<li>Frais : {{.Fee.StringFixed 2}} EUR</li>
<li>Total payé : {{.TotalTTC.StringFixed 2}} EUR</li>
<li>Montant à recevoir : {{.AmountGNF}} GNF</li>
<li>Mode de réception : {{.ReceptionMode}}</li>
</ul>
<p>Code de retrait : <strong>{{.Code}}</strong></p>
<p>Communiquez ce code uniquement au bénéficiaire.</p>`))

	withdrawnTemplate = template.Must(template.New("withdrawn").Parse(`<p>Bonjour,</p>
<p>Le transfert n°{{.TransferID}} de {{.AmountGNF}} GNF a été retiré par {{.BeneficiaryName}}.</p>`))
)

type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends transfer notifications over SMTP.
type Mailer struct {
	cfg    MailerConfig
	sender sender
}

func NewMailer(cfg MailerConfig) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return &Mailer{cfg: cfg, sender: client}, nil
}

func (m *Mailer) TransferCreated(ctx context.Context, notice TransferNotice) error {
	return m.send(ctx, notice, fmt.Sprintf("Transfert n°%d enregistré", notice.TransferID), createdTemplate)
}

func (m *Mailer) TransferWithdrawn(ctx context.Context, notice TransferNotice) error {
	return m.send(ctx, notice, fmt.Sprintf("Transfert n°%d retiré", notice.TransferID), withdrawnTemplate)
}

func (m *Mailer) send(ctx context.Context, notice TransferNotice, subject string, tpl *template.Template) error {
	msg, err := m.buildMessage(notice, subject, tpl)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *Mailer) buildMessage(notice TransferNotice, subject string, tpl *template.Template) (*mail.Msg, error) {
	to := strings.TrimSpace(notice.To)
	if to == "" {
		return nil, ErrNoRecipient
	}

	msg := mail.NewMsg()
	if m.cfg.FromName != "" {
		if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
			return nil, fmt.Errorf("invalid from address: %w", err)
		}
	} else if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	if err := msg.SetBodyHTMLTemplate(tpl, notice); err != nil {
		return nil, fmt.Errorf("render mail body: %w", err)
	}
	return msg, nil
}
