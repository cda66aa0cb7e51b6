package gmail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxswoop/internal/instrumentation"
)

// Client is the subset of the Gmail API inboxswoop uses.
type Client interface {
	ListMessages(ctx context.Context, user, query, pageToken string, pageSize int64) (*gmail.ListMessagesResponse, error)
	GetMessage(ctx context.Context, user, id, format string) (*gmail.Message, error)
	ModifyMessage(ctx context.Context, user, id string, req *gmail.ModifyMessageRequest) (*gmail.Message, error)
	BatchModifyMessages(ctx context.Context, user string, req *gmail.BatchModifyMessagesRequest) error
}

// ServiceClient implements Client over the gmail/v1 bindings.
type ServiceClient struct {
	msgs    *gmail.UsersMessagesService
	limiter *rate.Limiter
	timeout time.Duration
	metrics *instrumentation.Metrics

	svcOpts []option.ClientOption
}

// ClientOption configures a ServiceClient.
type ClientOption func(*ServiceClient)

// WithRateLimit paces API calls to qps with the given burst. qps <= 0 disables pacing.
func WithRateLimit(qps float64, burst int) ClientOption {
	return func(c *ServiceClient) {
		if qps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

// WithTimeout bounds every API call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *ServiceClient) { c.timeout = d }
}

// WithClientMetrics records an operation metric for every API call.
func WithClientMetrics(m *instrumentation.Metrics) ClientOption {
	return func(c *ServiceClient) { c.metrics = m }
}

// WithServiceOptions passes extra options, such as option.WithEndpoint, to
// the gmail service constructor.
func WithServiceOptions(opts ...option.ClientOption) ClientOption {
	return func(c *ServiceClient) { c.svcOpts = append(c.svcOpts, opts...) }
}

// NewServiceClient builds a ServiceClient on an authorized HTTP client.
func NewServiceClient(ctx context.Context, httpClient *http.Client, opts ...ClientOption) (*ServiceClient, error) {
	c := &ServiceClient{}
	for _, opt := range opts {
		opt(c)
	}

	svcOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, c.svcOpts...)
	svc, err := gmail.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	c.msgs = svc.Users.Messages
	return c, nil
}

// call runs fn under the limiter, timeout, span and metrics for one operation.
func (c *ServiceClient) call(ctx context.Context, operation string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation, attrs...)
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			instrumentation.SetSpanError(span, err)
			return err
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, time.Since(start))
	return err
}

// ListMessages implements Client.
func (c *ServiceClient) ListMessages(ctx context.Context, user, query, pageToken string, pageSize int64) (*gmail.ListMessagesResponse, error) {
	var resp *gmail.ListMessagesResponse
	err := c.call(ctx, instrumentation.OperationList, []attribute.KeyValue{instrumentation.QueryAttr(query)}, func(ctx context.Context) error {
		call := c.msgs.List(user).Context(ctx)
		if query != "" {
			call = call.Q(query)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		if pageSize > 0 {
			call = call.MaxResults(pageSize)
		}
		var err error
		resp, err = call.Do()
		return err
	})
	return resp, err
}

// GetMessage implements Client.
func (c *ServiceClient) GetMessage(ctx context.Context, user, id, format string) (*gmail.Message, error) {
	var msg *gmail.Message
	err := c.call(ctx, instrumentation.OperationGet, []attribute.KeyValue{instrumentation.MessageIDAttr(id)}, func(ctx context.Context) error {
		var err error
		msg, err = c.msgs.Get(user, id).Format(format).Context(ctx).Do()
		return err
	})
	return msg, err
}

// ModifyMessage implements Client.
func (c *ServiceClient) ModifyMessage(ctx context.Context, user, id string, req *gmail.ModifyMessageRequest) (*gmail.Message, error) {
	var msg *gmail.Message
	err := c.call(ctx, instrumentation.OperationModify, []attribute.KeyValue{instrumentation.MessageIDAttr(id)}, func(ctx context.Context) error {
		var err error
		msg, err = c.msgs.Modify(user, id, req).Context(ctx).Do()
		return err
	})
	return msg, err
}

// BatchModifyMessages implements Client.
func (c *ServiceClient) BatchModifyMessages(ctx context.Context, user string, req *gmail.BatchModifyMessagesRequest) error {
	return c.call(ctx, instrumentation.OperationBatchModify, []attribute.KeyValue{instrumentation.CountAttr(len(req.Ids))}, func(ctx context.Context) error {
		return c.msgs.BatchModify(user, req).Context(ctx).Do()
	})
}
