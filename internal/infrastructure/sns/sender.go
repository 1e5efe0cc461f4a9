package sns

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/storefront-api/internal/config"
	"github.com/storefront-api/internal/infrastructure/awscfg"
)

// ErrInvalidPhone is returned for numbers that are not in E.164 form.
var ErrInvalidPhone = errors.New("phone number must be in E.164 format")

// Publisher is the subset of the SNS client the sender uses.
type Publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Sender sends OTP text messages via AWS SNS.
type Sender struct {
	client   Publisher
	senderID string
}

func NewSender(client Publisher, senderID string) *Sender {
	return &Sender{client: client, senderID: senderID}
}

// NewClient builds an SNS client in cfg.SNSRegion.
func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return sns.NewFromConfig(awsCfg, clientOpts...), nil
}

// SendSMS publishes a transactional SMS; OTP codes must not be throttled as promotional traffic.
func (s *Sender) SendSMS(ctx context.Context, to, message string) error {
	if !strings.HasPrefix(to, "+") || len(to) < 8 {
		return ErrInvalidPhone
	}
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to),
		Message:           aws.String(message),
		MessageAttributes: attrs,
	})
	return err
}
