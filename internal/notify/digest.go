// internal/notify/digest.go
package notify

import (
	"context"
	"fmt"
	"strings"

	"agency-workspace/internal/common/config"
	"agency-workspace/internal/common/errors"
	"agency-workspace/internal/common/logger"
	"agency-workspace/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Digest sends the daily overdue follow-up summary to branch staff. Email
// carries the full table; SMS goes out only for items late beyond the
// configured threshold.
type Digest struct {
	config    config.NotificationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewDigest(cfg config.NotificationConfig, log logger.Logger) (*Digest, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Digest{
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "digest"}),
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
	}, nil
}

// NewDigestWithClients wires explicit clients, for tests.
func NewDigestWithClients(cfg config.NotificationConfig, log logger.Logger, sesClient SESService, snsClient SNSService) *Digest {
	return &Digest{
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "digest"}),
		sesClient: sesClient,
		snsClient: snsClient,
	}
}

// Send delivers the digest for the given overdue items. An empty timeline
// sends nothing. Email and SMS failures are independent; the first error is
// returned after both channels were attempted.
func (d *Digest) Send(ctx context.Context, items []models.FollowUpItem) error {
	if len(items) == 0 {
		d.logger.Info("no overdue follow-ups, skipping digest", nil)
		return nil
	}

	var firstErr error

	if d.config.Email.Enabled && len(d.config.Email.Recipients) > 0 {
		subject := fmt.Sprintf("Overdue follow-ups: %d pending", len(items))
		if err := d.sendEmail(ctx, subject, renderEmailBody(items)); err != nil {
			d.logger.Error("digest email failed", map[string]interface{}{
				"error": err.Error(),
			})
			firstErr = errors.NewDigestSendFailedError("email", err)
		}
	}

	if d.config.SMS.Enabled && len(d.config.SMS.PhoneNumbers) > 0 {
		urgent := filterUrgent(items, d.config.SMS.MinDaysLate)
		if len(urgent) > 0 {
			if err := d.sendSMS(ctx, renderSMSBody(urgent)); err != nil {
				d.logger.Error("digest SMS failed", map[string]interface{}{
					"error": err.Error(),
				})
				if firstErr == nil {
					firstErr = errors.NewDigestSendFailedError("sms", err)
				}
			}
		}
	}

	return firstErr
}

func filterUrgent(items []models.FollowUpItem, minDaysLate int) []models.FollowUpItem {
	urgent := []models.FollowUpItem{}
	for _, item := range items {
		if item.DaysOverdue >= minDaysLate {
			urgent = append(urgent, item)
		}
	}
	return urgent
}

func renderEmailBody(items []models.FollowUpItem) string {
	var b strings.Builder
	b.WriteString("The following follow-ups are overdue:\n\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- [%s] %s (%s), due %s, %d day(s) late, status %s\n",
			item.Kind, item.CustomerFullName, item.ContactNumber,
			item.FollowUpDate, item.DaysOverdue, item.Status)
	}
	return b.String()
}

func renderSMSBody(urgent []models.FollowUpItem) string {
	oldest := urgent[0]
	for _, item := range urgent {
		if item.DaysOverdue > oldest.DaysOverdue {
			oldest = item
		}
	}
	return fmt.Sprintf("%d follow-ups badly overdue. Oldest: %s, %d days late.",
		len(urgent), oldest.CustomerFullName, oldest.DaysOverdue)
}

func (d *Digest) sendEmail(ctx context.Context, subject, body string) error {
	_, err := d.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: d.config.Email.Recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(d.config.Email.FromEmail),
	})
	return err
}

func (d *Digest) sendSMS(ctx context.Context, message string) error {
	for _, phone := range d.config.SMS.PhoneNumbers {
		if _, err := d.snsClient.Publish(ctx, &sns.PublishInput{
			PhoneNumber: aws.String(phone),
			Message:     aws.String(message),
		}); err != nil {
			return err
		}
	}
	return nil
}
