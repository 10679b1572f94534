package ledger

import (
	"context"

	"github.com/wippyai/ledger-bridge/registry"
)

// SignAndSubmitRequest signs requestJSON with the submitter's key from
// wallet and sends it to the pool. The future resolves to the pool's reply.
func (c *Client) SignAndSubmitRequest(ctx context.Context, pool Pool, wallet Wallet, submitterDid, requestJSON string) (*registry.Future[string], error) {
	return c.json(ctx, OpSignAndSubmitRequest, pool, wallet, submitterDid, requestJSON)
}

// SubmitRequest sends an already signed request to the pool.
func (c *Client) SubmitRequest(ctx context.Context, pool Pool, requestJSON string) (*registry.Future[string], error) {
	return c.json(ctx, OpSubmitRequest, pool, requestJSON)
}

// SignRequest signs requestJSON without submitting it.
func (c *Client) SignRequest(ctx context.Context, wallet Wallet, submitterDid, requestJSON string) (*registry.Future[string], error) {
	return c.json(ctx, OpSignRequest, wallet, submitterDid, requestJSON)
}
