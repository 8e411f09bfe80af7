package utils

import (
	"fmt"

	"eshop/models"

	"github.com/keighl/postmark"
)

// EmailService handles sending emails using Postmark
type EmailService struct {
	client *postmark.Client
	sender string
}

// NewEmailService returns a service sending as sender through the given Postmark server token.
func NewEmailService(apiToken, sender string) *EmailService {
	return &EmailService{
		client: postmark.NewClient(apiToken, ""),
		sender: sender,
	}
}

// SendEmail sends a basic email to the specified recipient
func (es *EmailService) SendEmail(toEmail, subject, htmlContent string) error {
	_, err := es.client.SendEmail(postmark.Email{
		From:     es.sender,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlContent,
		TextBody: htmlContent,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendOrderConfirmationEmail sends an order confirmation email to the user
func (es *EmailService) SendOrderConfirmationEmail(toEmail string, order models.Order) error {
	return es.SendEmail(toEmail, "Order Confirmation", OrderConfirmationBody(order))
}

// OrderConfirmationBody renders the confirmation mail for order.
func OrderConfirmationBody(order models.Order) string {
	return fmt.Sprintf(
		"<strong>Dear Customer,</strong><br><br>Thank you for your purchase! Your order (ID: %s) with %d item(s) has been placed and is <strong>%s</strong>.<br><br>Total Amount: <strong>$%.2f</strong><br>Shipping to: %s, %s %s, %s<br><br>Thank you for shopping with us!",
		order.ID.Hex(),
		len(order.OrderItems),
		order.Status,
		order.TotalPrice,
		order.ShippingAddress1,
		order.Zip,
		order.City,
		order.Country,
	)
}
