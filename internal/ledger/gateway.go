package ledger

import (
	"context"
	"errors"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/config"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/logger"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/types"
)

// connection is a live, single-use link to the ledger network bound to
// one contract. It must be closed exactly once.
type connection interface {
	Submit(ctx context.Context, fn string, args ...string) ([]byte, error)
	Close() error
}

// connectFunc opens a connection for one invocation. Injectable so
// tests can substitute a fake that records open/close ordering.
type connectFunc func(ctx context.Context, profile *ConnectionProfile, identity *Identity) (connection, error)

// GatewayClient bridges authorized requests to the ledger network. Each
// Submit opens a fresh, unshared connection, resolves the contract,
// submits the transaction and tears the connection down on every exit
// path. No retries are attempted at this layer.
type GatewayClient struct {
	cfg     *config.FabricConfig
	wallet  Wallet
	log     *logger.Logger
	connect connectFunc
}

// NewGatewayClient creates a gateway client that signs with the
// configured wallet identity.
func NewGatewayClient(cfg *config.FabricConfig, wallet Wallet, log *logger.Logger) *GatewayClient {
	return &GatewayClient{
		cfg:     cfg,
		wallet:  wallet,
		log:     log,
		connect: fabricConnect(cfg),
	}
}

// Submit invokes the named chaincode function with the ordered string
// arguments and returns the raw response bytes. Arguments are a direct
// pass-through: the gateway performs no interpretation beyond ordering.
func (c *GatewayClient) Submit(ctx context.Context, fn string, args ...string) ([]byte, error) {
	profile, err := LoadConnectionProfile(c.cfg.ConnectionProfile)
	if err != nil {
		return nil, types.NewGatewayError(types.ErrCodeProfileNotFound, "fabric connection profile unavailable", err)
	}

	identity, err := c.wallet.Get(c.cfg.IdentityLabel)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, types.NewGatewayError(types.ErrCodeIdentityNotFound, "signing identity "+c.cfg.IdentityLabel+" not found in wallet", err)
		}
		return nil, types.NewInternalError("failed to read wallet", err)
	}

	conn, err := c.connect(ctx, profile, identity)
	if err != nil {
		c.log.LedgerTransaction(c.cfg.ChannelName, c.cfg.ChaincodeName, fn, args, false, map[string]interface{}{
			"error": err.Error(),
		})
		return nil, types.NewGatewayError(types.ErrCodeSubmitFailed, "failed to connect to ledger network", err)
	}
	// The connection is torn down unconditionally once opened,
	// whatever the submission outcome.
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			c.log.WithError(closeErr).Warn("Failed to close ledger connection")
		}
	}()

	result, err := conn.Submit(ctx, fn, args...)
	if err != nil {
		c.log.LedgerTransaction(c.cfg.ChannelName, c.cfg.ChaincodeName, fn, args, false, map[string]interface{}{
			"error": err.Error(),
		})
		return nil, types.NewGatewayError(types.ErrCodeSubmitFailed, "transaction submission failed", err)
	}

	c.log.LedgerTransaction(c.cfg.ChannelName, c.cfg.ChaincodeName, fn, args, true, nil)
	return result, nil
}
