package ledger

import (
	"context"

	"github.com/wippyai/ledger-bridge/registry"
)

// Request builders. Each future resolves to the request JSON, ready to be
// signed and submitted. Optional string arguments may be empty.

func (c *Client) BuildGetDdoRequest(ctx context.Context, submitterDid, targetDid string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildGetDdoRequest, submitterDid, targetDid)
}

// BuildNymRequest builds a NYM transaction creating or updating targetDid.
func (c *Client) BuildNymRequest(ctx context.Context, submitterDid, targetDid, verkey, alias, role string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildNymRequest, submitterDid, targetDid, verkey, alias, role)
}

// BuildAttribRequest builds an ATTRIB transaction. Exactly one of hash, raw
// and enc is expected to be set; the engine enforces it.
func (c *Client) BuildAttribRequest(ctx context.Context, submitterDid, targetDid, hash, raw, enc string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildAttribRequest, submitterDid, targetDid, hash, raw, enc)
}

func (c *Client) BuildGetAttribRequest(ctx context.Context, submitterDid, targetDid, raw, hash, enc string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildGetAttribRequest, submitterDid, targetDid, raw, hash, enc)
}

func (c *Client) BuildGetNymRequest(ctx context.Context, submitterDid, targetDid string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildGetNymRequest, submitterDid, targetDid)
}

// BuildSchemaRequest builds a SCHEMA transaction from schema JSON.
func (c *Client) BuildSchemaRequest(ctx context.Context, submitterDid, data string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildSchemaRequest, submitterDid, data)
}

func (c *Client) BuildGetSchemaRequest(ctx context.Context, submitterDid, id string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildGetSchemaRequest, submitterDid, id)
}

// BuildCredDefRequest builds a CRED_DEF transaction from credential
// definition JSON.
func (c *Client) BuildCredDefRequest(ctx context.Context, submitterDid, data string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildCredDefRequest, submitterDid, data)
}

func (c *Client) BuildGetCredDefRequest(ctx context.Context, submitterDid, id string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildGetCredDefRequest, submitterDid, id)
}

// BuildNodeRequest builds a NODE transaction for the validator targetDid.
func (c *Client) BuildNodeRequest(ctx context.Context, submitterDid, targetDid, data string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildNodeRequest, submitterDid, targetDid, data)
}

// BuildGetTxnRequest builds a GET_TXN request for the transaction at seqNo.
func (c *Client) BuildGetTxnRequest(ctx context.Context, submitterDid string, seqNo int32) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildGetTxnRequest, submitterDid, seqNo)
}

func (c *Client) BuildPoolConfigRequest(ctx context.Context, submitterDid string, writes, force bool) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildPoolConfigRequest, submitterDid, writes, force)
}

// PoolUpgrade holds the arguments of a POOL_UPGRADE transaction.
type PoolUpgrade struct {
	Name          string
	Version       string
	Action        string // "start" or "cancel"
	SHA256        string
	Schedule      string
	Justification string
	Timeout       int32
	Reinstall     bool
	Force         bool
}

func (c *Client) BuildPoolUpgradeRequest(ctx context.Context, submitterDid string, u PoolUpgrade) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildPoolUpgradeRequest, submitterDid,
		u.Name, u.Version, u.Action, u.SHA256, u.Timeout, u.Schedule, u.Justification, u.Reinstall, u.Force)
}

func (c *Client) BuildRevocRegDefRequest(ctx context.Context, submitterDid, data string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildRevocRegDefRequest, submitterDid, data)
}

func (c *Client) BuildGetRevocRegDefRequest(ctx context.Context, submitterDid, id string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildGetRevocRegDefRequest, submitterDid, id)
}

// BuildRevocRegEntryRequest builds a REVOC_REG_ENTRY transaction appending
// value to the registry revocRegDefID.
func (c *Client) BuildRevocRegEntryRequest(ctx context.Context, submitterDid, revocRegDefID, revDefType, value string) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildRevocRegEntryRequest, submitterDid, revocRegDefID, revDefType, value)
}

// BuildGetRevocRegRequest requests the accumulator of a revocation registry
// as of timestamp.
func (c *Client) BuildGetRevocRegRequest(ctx context.Context, submitterDid, revocRegDefID string, timestamp int32) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildGetRevocRegRequest, submitterDid, revocRegDefID, timestamp)
}

// BuildGetRevocRegDeltaRequest requests the changes to a revocation registry
// between from and to.
func (c *Client) BuildGetRevocRegDeltaRequest(ctx context.Context, submitterDid, revocRegDefID string, from, to int32) (*registry.Future[string], error) {
	return c.json(ctx, OpBuildGetRevocRegDeltaRequest, submitterDid, revocRegDefID, from, to)
}
