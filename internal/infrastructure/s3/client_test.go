package s3infra

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeGetter) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestRateSource_Rates(t *testing.T) {
	g := &fakeGetter{body: `{"INR": 83.5, "EUR": 0.91}`}
	rates, err := NewRateSource(g, "fx", "currency/rates.json").Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"INR": 83.5, "EUR": 0.91}, rates)
	assert.Equal(t, "fx", g.bucket)
	assert.Equal(t, "currency/rates.json", g.key)
}

func TestRateSource_Errors(t *testing.T) {
	_, err := NewRateSource(&fakeGetter{err: errors.New("no such key")}, "fx", "k").Rates(context.Background())
	assert.Error(t, err)

	_, err = NewRateSource(&fakeGetter{body: "not json"}, "fx", "k").Rates(context.Background())
	assert.Error(t, err)
}
