package sender

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/dmitrijs2005/credcore/internal/server/otp"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newSNSClientFromConfig = func(cfg aws.Config, optFns ...func(*sns.Options)) Publisher {
		return sns.NewFromConfig(cfg, optFns...)
	}
)

// Publisher is the slice of the SNS client the sender needs.
type Publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the regional endpoint (e.g. LocalStack).
	Endpoint string
	Timeout  time.Duration
	TTL      time.Duration
}

// SNS publishes the code as a transactional SMS straight to a phone number.
type SNS struct {
	client  Publisher
	timeout time.Duration
	ttl     time.Duration
}

// NewSNS builds an SNS client from cfg. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies.
func NewSNS(ctx context.Context, cfg SNSConfig) (*SNS, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := newSNSClientFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewSNSWithClient(client, cfg.Timeout, cfg.TTL), nil
}

func NewSNSWithClient(client Publisher, timeout, ttl time.Duration) *SNS {
	return &SNS{client: client, timeout: timeout, ttl: ttl}
}

func (s *SNS) Channel() string { return "sns" }
func (s *SNS) Medium() Medium  { return MediumSMS }

func (s *SNS) Send(ctx context.Context, recipient, code, contextID string) Result {
	return guard(func() Result {
		if recipient == "" {
			return failed("invalid recipient")
		}

		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		in := &sns.PublishInput{
			PhoneNumber: aws.String(recipient),
			Message:     aws.String(otp.Message(code, s.ttl)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"AWS.SNS.SMS.SMSType": {
					DataType:    aws.String("String"),
					StringValue: aws.String("Transactional"),
				},
			},
		}

		out, err := s.client.Publish(ctx, in)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return failed("sns: timeout")
			}
			return failed("sns: %v", err)
		}
		if out == nil || out.MessageId == nil {
			return failed("sns: empty response")
		}
		return ok()
	})
}
