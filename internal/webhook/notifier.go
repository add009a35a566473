package webhook

import (
	"context"

	"github.com/dunamismax/blastflow/internal/domain"
)

// JobNotifier delivers job.completed events to a fixed endpoint.
type JobNotifier struct {
	client   *Client
	endpoint string
}

func NewJobNotifier(client *Client, endpoint string) *JobNotifier {
	return &JobNotifier{client: client, endpoint: endpoint}
}

func (n *JobNotifier) NotifyCompleted(ctx context.Context, summary domain.JobSummary) error {
	return n.client.Send(ctx, n.endpoint, EventJobCompleted, summary)
}
