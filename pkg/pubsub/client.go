// Package pubsub wraps the Cloud Pub/Sub v2 client used by the outbox
// publisher and the stock alert worker. Topics and subscriptions are
// referenced by short ID in config; full resource names are accepted too.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bitetrack/bitetrack-backend/pkg/config"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
)

var (
	errMissingProject      = errors.New("gcp project id is not set")
	errMissingSubscription = errors.New("no pubsub subscription configured")
	errClientNotReady      = errors.New("pubsub client not initialized")
)

// Client owns the underlying Pub/Sub connection for one service process.
type Client struct {
	inner   *pubsub.Client
	project string
	cfg     config.PubSubConfig
}

// NewClient dials Pub/Sub and verifies the domain subscription exists, so a
// worker pointed at a missing subscription fails at boot rather than at the
// first receive.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errMissingProject
	}

	conn, err := pubsub.NewClient(ctx, gcp.ProjectID, credentialOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("dialing pubsub: %w", err)
	}

	c := &Client{inner: conn, project: gcp.ProjectID, cfg: cfg}
	if err := c.verifyDomainSubscription(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "pubsub client ready")
	}
	return c, nil
}

func credentialOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// DomainSubscription returns the handle for the configured domain event
// subscription consumed by the stock alert worker.
func (c *Client) DomainSubscription() *pubsub.Subscriber {
	return c.subscriber(c.cfg.DomainSubscription)
}

func (c *Client) subscriber(name string) *pubsub.Subscriber {
	if c == nil || c.inner == nil {
		return nil
	}
	resource := c.qualify("subscriptions", name)
	if resource == "" {
		return nil
	}
	return c.inner.Subscriber(resource)
}

// Publisher returns a publisher handle for the given topic ID or full
// resource name. The outbox publisher resolves topic names per event, so
// this is the only publish entry point.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.inner == nil {
		return nil
	}
	resource := c.qualify("topics", name)
	if resource == "" {
		return nil
	}
	return c.inner.Publisher(resource)
}

// Ping re-verifies the configured subscription, doubling as a connectivity
// check for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.inner == nil {
		return errClientNotReady
	}
	return c.verifyDomainSubscription(ctx)
}

// Close releases the underlying gRPC resources.
func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

func (c *Client) verifyDomainSubscription(ctx context.Context) error {
	name := strings.TrimSpace(c.cfg.DomainSubscription)
	if name == "" {
		return errMissingSubscription
	}
	resource := c.qualify("subscriptions", name)
	if resource == "" {
		return fmt.Errorf("subscription %q not configured", name)
	}

	_, err := c.inner.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: resource})
	// The v2 admin API surfaces gRPC status codes.
	switch status.Code(err) {
	case codes.OK:
		return nil
	case codes.NotFound:
		return fmt.Errorf("pubsub subscription %q does not exist", name)
	default:
		return fmt.Errorf("verifying subscription %q: %w", name, err)
	}
}

// qualify expands a short topic or subscription ID into the full
// projects/<id>/<kind>/<name> resource path, passing through names that are
// already fully qualified.
func (c *Client) qualify(kind, name string) string {
	if c == nil {
		return ""
	}
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	project := strings.TrimSpace(c.project)
	if project == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", project, kind, n)
}
