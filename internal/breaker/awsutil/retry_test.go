package awsutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "throttling is retryable",
			err:  &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"},
			want: true,
		},
		{
			name: "access denied is not retryable",
			err:  &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"},
			want: false,
		},
		{
			name: "non-smithy error defaults to retryable",
			err:  errors.New("connection reset"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestDo_SucceedsWithoutRetry(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, OperationTimeout: time.Second}

	calls := 0
	err := Do(context.Background(), cfg, "op", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, OperationTimeout: time.Second}

	calls := 0
	err := Do(context.Background(), cfg, "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, OperationTimeout: time.Second}

	calls := 0
	err := Do(context.Background(), cfg, "op", func(ctx context.Context) error {
		calls++
		return &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, OperationTimeout: time.Second}

	calls := 0
	err := Do(context.Background(), cfg, "op", func(ctx context.Context) error {
		calls++
		return &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
	})

	require.Error(t, err)
	assert.Equal(t, cfg.MaxRetries+1, calls)
}
