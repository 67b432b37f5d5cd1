package port

import (
	"context"

	jsoniter "github.com/json-iterator/go"
)

// SocialSearchClient runs a social-media search for a query and returns the raw payload.
type SocialSearchClient interface {
	Search(ctx context.Context, query string) (jsoniter.RawMessage, error)
}
