package mailer

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"

	"marketglimpse_backend/models"
)

// PriceAlertEmail carries everything needed to render one alert notification.
type PriceAlertEmail struct {
	RecipientEmail string
	Symbol         string
	Company        string
	CurrentPrice   decimal.Decimal
	TargetPrice    decimal.Decimal
	Condition      string
}

// Mailer delivers alert notifications over SMTP. Delivery is best effort:
// callers log failures and move on, they never fail evaluation over email.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger zerolog.Logger
}

// NewMailer creates an SMTP mailer.
func NewMailer(host string, port int, username, password, from string, logger zerolog.Logger) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		logger: logger.With().Str("component", "mailer").Logger(),
	}
}

// SendPriceAlert renders and sends one alert notification email.
func (m *Mailer) SendPriceAlert(data PriceAlertEmail) error {
	current := data.CurrentPrice.StringFixed(2)
	target := data.TargetPrice.StringFixed(2)

	var subject, template string
	if data.Condition == models.ConditionAbove {
		subject = fmt.Sprintf("%s reached $%s - Above your target!", data.Symbol, current)
		template = alertUpperTemplate
	} else {
		subject = fmt.Sprintf("%s dropped to $%s - Below your target!", data.Symbol, current)
		template = alertLowerTemplate
	}

	html := strings.NewReplacer(
		"{{symbol}}", data.Symbol,
		"{{company}}", data.Company,
		"{{currentPrice}}", current,
		"{{targetPrice}}", target,
		"{{timestamp}}", time.Now().Format("January 2, 2006 3:04 PM"),
	).Replace(template)

	text := fmt.Sprintf("%s has %s your target price of $%s. Current price: $%s",
		data.Symbol, conditionVerb(data.Condition), target, current)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", data.RecipientEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	msg.AddAlternative("text/html", html)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send alert email for %s: %w", data.Symbol, err)
	}

	m.logger.Info().Str("symbol", data.Symbol).Str("to", data.RecipientEmail).Msg("alert email sent")
	return nil
}

func conditionVerb(condition string) string {
	if condition == models.ConditionAbove {
		return "exceeded"
	}
	return "dropped below"
}
