package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/hmarroquin/labtrack-api/internal/config"
	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/pkg/logger"
)

// Sender delivers notification mail to back-office staff. It is an outward
// collaborator; the engines never depend on it succeeding.
type Sender interface {
	SendLowStockAlert(ctx context.Context, to string, branch *model.Branch, supplies []*model.Supply) error
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, logger *logger.Logger) Sender {
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (s *smtpSender) SendLowStockAlert(ctx context.Context, to string, branch *model.Branch, supplies []*model.Supply) error {
	subject := fmt.Sprintf("Low stock alert - %s", branch.Name)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody(branch, supplies))
	m.AddAlternative("text/html", htmlBody(branch, supplies))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send low stock alert: %w", err)
	}

	s.logger.Info("low stock alert sent", "to", to, "branch_id", branch.ID, "supplies", len(supplies))
	return nil
}

func plainBody(branch *model.Branch, supplies []*model.Supply) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Low stock supplies - %s\n", branch.Name)
	fmt.Fprintf(&b, "Date: %s\n\n", time.Now().Format("02/01/2006 15:04"))
	for _, s := range supplies {
		fmt.Fprintf(&b, "- %s: %d/%d\n", s.Name, s.Stock, s.MinStock)
	}
	return b.String()
}

func htmlBody(branch *model.Branch, supplies []*model.Supply) string {
	var rows strings.Builder
	for _, s := range supplies {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td align='right'>%d</td><td align='right'>%d</td></tr>", s.Name, s.Stock, s.MinStock)
	}
	return fmt.Sprintf(`
<h2>Low stock supplies</h2>
<p><b>Branch:</b> %s &nbsp;|&nbsp; <b>Date:</b> %s</p>
<table border='1' cellpadding='6' cellspacing='0' style='border-collapse:collapse'>
  <thead><tr><th align='left'>Supply</th><th align='right'>Stock</th><th align='right'>Minimum</th></tr></thead>
  <tbody>%s</tbody>
</table>`, branch.Name, time.Now().Format("02/01/2006 15:04"), rows.String())
}
