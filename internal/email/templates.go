package email

import (
	"bytes"
	"fmt"
	"html/template"
)

var ticketConfirmationTemplate = template.Must(template.New("ticket_confirmation").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Your ZurichJS ticket</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 0; background-color: #f5f5f5;">
<table role="presentation" style="width: 100%; border: 0; cellpadding: 0; cellspacing: 0;">
<tr><td style="padding: 40px 0; text-align: center;">
<table role="presentation" style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
<tr><td style="padding: 32px 40px; text-align: center;">
<h1 style="margin: 0 0 16px; font-size: 24px; color: #1a1a1a;">You're in, {{.AttendeeName}}!</h1>
<p style="margin: 0 0 24px; color: #666; font-size: 15px; line-height: 1.5;">
Your payment for ZurichJS Conference 2026 is confirmed. Bring this ticket reference to check-in.
</p>
<p style="margin: 0 0 24px; padding: 12px; background: #f5f5f5; border-radius: 6px; font-family: monospace; font-size: 16px; color: #1a1a1a;">
{{.TicketID}}
</p>
<p style="margin: 24px 0 0; color: #999; font-size: 13px; line-height: 1.5;">
Questions? Just reply to this email.
</p>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`))

// TicketConfirmationData holds template data for the ticket confirmation email.
type TicketConfirmationData struct {
	AttendeeName string
	TicketID     string
}

// RenderTicketConfirmation renders the paid-ticket confirmation email.
func RenderTicketConfirmation(data TicketConfirmationData) (html, text string, err error) {
	var buf bytes.Buffer
	if err := ticketConfirmationTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render ticket confirmation template: %w", err)
	}

	textBody := fmt.Sprintf("You're in, %s!\n\nYour payment for ZurichJS Conference 2026 is confirmed.\nTicket reference: %s\n\nBring this reference to check-in. Questions? Just reply to this email.",
		data.AttendeeName, data.TicketID)

	return buf.String(), textBody, nil
}

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>ZurichJS sponsorship invoice</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 0; background-color: #f5f5f5;">
<table role="presentation" style="width: 100%; border: 0; cellpadding: 0; cellspacing: 0;">
<tr><td style="padding: 40px 0; text-align: center;">
<table role="presentation" style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
<tr><td style="padding: 32px 40px; text-align: left;">
<h1 style="margin: 0 0 16px; font-size: 24px; color: #1a1a1a;">Invoice {{.InvoiceNumber}}</h1>
<p style="margin: 0 0 24px; color: #666; font-size: 15px; line-height: 1.5;">
Dear {{.SponsorName}}, thank you for sponsoring ZurichJS Conference 2026. Your invoice is attached as a PDF.
</p>
<p style="margin: 0 0 24px; color: #1a1a1a; font-size: 18px; font-weight: 600;">
Amount due: {{.TotalFormatted}}
</p>
<p style="margin: 24px 0 0; color: #999; font-size: 13px; line-height: 1.5;">
Payment terms: 30 days net. Reply to this email for billing questions.
</p>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`))

// InvoiceEmailData holds template data for the sponsorship invoice email.
type InvoiceEmailData struct {
	SponsorName    string
	InvoiceNumber  string
	TotalFormatted string
}

// RenderInvoiceEmail renders the sponsorship invoice delivery email.
func RenderInvoiceEmail(data InvoiceEmailData) (html, text string, err error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render invoice template: %w", err)
	}

	textBody := fmt.Sprintf("Invoice %s\n\nDear %s, thank you for sponsoring ZurichJS Conference 2026.\nAmount due: %s\n\nYour invoice is attached as a PDF. Payment terms: 30 days net.",
		data.InvoiceNumber, data.SponsorName, data.TotalFormatted)

	return buf.String(), textBody, nil
}
