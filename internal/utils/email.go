package utils

import (
	"log"
	"os"
	"strconv"

	"github.com/wneessen/go-mail"
)

// SMTPConfig porte la configuration du transport mail, chargée depuis .env
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// LoadSMTPConfig lit la configuration SMTP. ok=false si un champ indispensable
// manque (host, from, to) — l'appelant saute alors l'envoi, par design.
func LoadSMTPConfig() (SMTPConfig, bool) {
	cfg := SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("ORDER_NOTIFY_FROM"),
		To:       os.Getenv("ORDER_NOTIFY_TO"),
	}

	cfg.Port = 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			cfg.Port = port
		}
	}

	if cfg.Host == "" || cfg.From == "" || cfg.To == "" {
		return cfg, false
	}
	return cfg, true
}

// SMTPSender envoie les notifications internes via go-mail
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send envoie un email texte + HTML à l'adresse interne configurée
func (s *SMTPSender) Send(subject, textBody, htmlBody string) error {
	msg := mail.NewMsg()

	if err := msg.From(s.cfg.From); err != nil {
		return err
	}
	if err := msg.To(s.cfg.To); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de la notification à", s.cfg.To)
	return client.DialAndSend(msg)
}
