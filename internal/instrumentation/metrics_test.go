package instrumentation

import (
	"context"
	"testing"
	"time"
)

func TestMetrics_Record(t *testing.T) {
	ctx, provider := newTestProvider(t)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/", 200, 3*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "DELETE", "/", 405, time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationList, StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationModify, StatusError, 500*time.Millisecond)
	metrics.RecordOAuthAuth(ctx, OAuthResultSuccess)
	metrics.RecordOAuthTokenRefresh(ctx, OAuthResultExpired)
	metrics.RecordMessageProcessed(ctx, "skipped")
}

func TestMetrics_NoOp(t *testing.T) {
	ctx := context.Background()

	var zero Metrics
	zero.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
	zero.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationGet, StatusSuccess, time.Millisecond)
	zero.RecordOAuthAuth(ctx, OAuthResultFailure)
	zero.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	zero.RecordMessageProcessed(ctx, "failed")

	var nilMetrics *Metrics
	nilMetrics.RecordMessageProcessed(ctx, "archived")
	nilMetrics.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationGet, StatusSuccess, time.Millisecond)
}
