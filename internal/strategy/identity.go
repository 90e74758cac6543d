package strategy

import "context"

// Identity returns every chunk unchanged. It is the transform-off strategy.
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Rewrite(_ context.Context, req Request) (string, error) {
	return req.Text, nil
}
