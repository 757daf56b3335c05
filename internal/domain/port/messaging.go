package port

import (
	"context"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/entity"
)

type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}

// FailureNotifier tells a user their job will not be retried.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userEmail string, job *entity.Job) error
}
