package ses

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"hydromet/internal/domain"
	"hydromet/internal/port"
)

// sendEmailAPI is the subset of the SES client the sender needs.
type sendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesSender struct {
	client      sendEmailAPI
	fromAddress string
	fromName    string
	toAddress   string
}

// NewSESSender creates a new SES-backed EmailSender that mails orphan
// reports to the operator address.
func NewSESSender(region, fromAddress, fromName, operatorAddress string) (port.EmailSender, error) {
	if operatorAddress == "" {
		return nil, fmt.Errorf("ses: operator address is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return newSender(sesv2.NewFromConfig(cfg), fromAddress, fromName, operatorAddress), nil
}

func newSender(client sendEmailAPI, fromAddress, fromName, toAddress string) *sesSender {
	return &sesSender{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		toAddress:   toAddress,
	}
}

func (s *sesSender) SendOrphanReport(ctx context.Context, objects []domain.OrphanedObject) error {
	if len(objects) == 0 {
		return nil
	}

	subject := fmt.Sprintf("[hydromet] %d orphaned upload(s) detected", len(objects))
	htmlBody := buildOrphanReportHTML(objects)
	textBody := buildOrphanReportText(objects)

	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{s.toAddress},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func orphanAction(o *domain.OrphanedObject) string {
	if o.Deleted {
		return "deleted"
	}
	return "kept"
}

func buildOrphanReportText(objects []domain.OrphanedObject) string {
	var b strings.Builder
	b.WriteString("The following objects were uploaded but never committed:\n\n")
	for i := range objects {
		o := &objects[i]
		fmt.Fprintf(&b, "- %s (%s, %d bytes, expired %s, %s)\n",
			o.Key, o.Kind, o.Size, o.ExpiredAt.UTC().Format(time.RFC3339), orphanAction(o))
	}
	b.WriteString("\nCommit the keys again or remove them from the bucket.\n")
	return b.String()
}

func buildOrphanReportHTML(objects []domain.OrphanedObject) string {
	var rows strings.Builder
	for i := range objects {
		o := &objects[i]
		fmt.Fprintf(&rows,
			`<tr><td style="padding: 4px 8px;">%s</td><td style="padding: 4px 8px;">%s</td><td style="padding: 4px 8px; text-align: right;">%d</td><td style="padding: 4px 8px;">%s</td><td style="padding: 4px 8px;">%s</td></tr>`,
			html.EscapeString(o.Key), html.EscapeString(string(o.Kind)), o.Size,
			o.ExpiredAt.UTC().Format(time.RFC3339), orphanAction(o))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Orphaned uploads</h2>
  <p>These objects were uploaded but never committed:</p>
  <table style="border-collapse: collapse; font-size: 13px;">
    <tr style="background: #f3f4f6;"><th>Key</th><th>Kind</th><th>Bytes</th><th>Expired</th><th>Action</th></tr>
    %s
  </table>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">hydromet upload service</p>
</body>
</html>`, rows.String())
}
