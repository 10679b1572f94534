package ledger

import (
	"context"

	"github.com/wippyai/ledger-bridge/registry"
)

// ParseGetSchemaResponse extracts the schema id and schema JSON from a
// GET_SCHEMA reply.
func (c *Client) ParseGetSchemaResponse(ctx context.Context, response string) (*registry.Future[ParseResponseResult], error) {
	return c.parse(ctx, OpParseGetSchemaResponse, response)
}

// ParseGetCredDefResponse extracts the credential definition from a
// GET_CRED_DEF reply.
func (c *Client) ParseGetCredDefResponse(ctx context.Context, response string) (*registry.Future[ParseResponseResult], error) {
	return c.parse(ctx, OpParseGetCredDefResponse, response)
}

func (c *Client) ParseGetRevocRegDefResponse(ctx context.Context, response string) (*registry.Future[ParseResponseResult], error) {
	return c.parse(ctx, OpParseGetRevocRegDefResponse, response)
}

func (c *Client) ParseGetRevocRegResponse(ctx context.Context, response string) (*registry.Future[ParseResponseResult], error) {
	return c.parse(ctx, OpParseGetRevocRegResponse, response)
}

func (c *Client) ParseGetRevocRegDeltaResponse(ctx context.Context, response string) (*registry.Future[ParseResponseResult], error) {
	return c.parse(ctx, OpParseGetRevocRegDeltaResponse, response)
}
