package outbox

import (
	"context"

	"github.com/NordCoder/Tubely/internal/domain/outbox"
	"github.com/NordCoder/Tubely/internal/obs/retry"
)

// WrapKindHandler retries h under p.
func WrapKindHandler(h outbox.KindHandler, p retry.Policy) outbox.KindHandler {
	return func(ctx context.Context, data []byte) error {
		return retry.Do(ctx, func() error { return h(ctx, data) }, p)
	}
}
