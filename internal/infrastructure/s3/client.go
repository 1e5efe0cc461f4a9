package s3infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/storefront-api/internal/config"
	"github.com/storefront-api/internal/infrastructure/awscfg"
)

// maxRatesSize bounds the rates document read from the bucket.
const maxRatesSize = 64 << 10

// ObjectGetter is the subset of the S3 client RateSource uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// RateSource reads an exchange-rate document such as {"INR": 83.5, "EUR": 0.91}
// from a single S3 object.
type RateSource struct {
	client ObjectGetter
	bucket string
	key    string
}

func NewRateSource(client ObjectGetter, bucket, key string) *RateSource {
	return &RateSource{client: client, bucket: bucket, key: key}
}

// Rates downloads and decodes the rates document. Validation of codes and
// values is left to the currency catalog.
func (s *RateSource) Rates(ctx context.Context) (map[string]float64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object %s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	var rates map[string]float64
	if err := json.NewDecoder(io.LimitReader(out.Body, maxRatesSize)).Decode(&rates); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	return rates, nil
}
