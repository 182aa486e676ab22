// internal/services/notification_senders.go
package services

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/land-escrow-backend/internal/config"
	"github.com/javajoker/land-escrow-backend/internal/models"
)

// EmailSender delivers over SMTP. Without SMTP_HOST it only logs.
type EmailSender struct {
	config config.EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	return &EmailSender{config: cfg, send: smtp.SendMail}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, to *models.User, subject, htmlBody, text string) error {
	if to.Email == "" {
		return nil
	}

	if s.config.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": to.Email, "subject": subject}).Info("Email would be sent")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)

	msg := []byte(fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.config.FromName, s.config.FromEmail, to.Email, subject, htmlBody))

	addr := fmt.Sprintf("%s:%s", s.config.SMTPHost, s.config.SMTPPort)
	return s.send(addr, auth, s.config.FromEmail, []string{to.Email}, msg)
}

// SMSSender publishes text messages through AWS SNS.
type SMSSender struct {
	client   snsiface.SNSAPI
	senderID string
}

// NewSMSSender returns nil when no AWS credentials are configured.
func NewSMSSender(cfg config.AWSConfig) (*SMSSender, error) {
	if cfg.AccessKeyID == "" {
		return nil, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewSMSSenderWithClient(sns.New(sess), cfg.SNSSenderID), nil
}

func NewSMSSenderWithClient(client snsiface.SNSAPI, senderID string) *SMSSender {
	return &SMSSender{client: client, senderID: senderID}
}

func (s *SMSSender) Name() string { return "sms" }

func (s *SMSSender) Send(ctx context.Context, to *models.User, subject, htmlBody, text string) error {
	if to.Phone == "" {
		return nil
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(to.Phone),
		Message:     aws.String(text),
		MessageAttributes: map[string]*sns.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}
	if s.senderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = &sns.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	if _, err := s.client.PublishWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to publish SMS: %w", err)
	}
	return nil
}
