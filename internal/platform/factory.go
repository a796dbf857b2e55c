package platform

import (
	"context"

	"github.com/aretw0/clozekit/pkg/core"
)

// New opens the collection at uri and wraps it in a service:
//
//	svc, err := clozekit.New("~/.local/share/Anki2/User 1", clozekit.WithBackup(true))
func New(ctx context.Context, uri string, opts ...Option) (*core.Service, error) {
	coll, err := Open(ctx, uri, opts...)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return core.NewService(coll, o.logger), nil
}
