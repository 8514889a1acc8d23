package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	fabricidentity "github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/config"
)

// fabricConnection wraps a live Fabric Gateway session. Close releases
// the gateway before the underlying gRPC channel, reversing acquisition
// order.
type fabricConnection struct {
	grpcConn *grpc.ClientConn
	gateway  *client.Gateway
	contract *client.Contract
}

func (fc *fabricConnection) Submit(ctx context.Context, fn string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fc.contract.SubmitTransaction(fn, args...)
}

func (fc *fabricConnection) Close() error {
	gwErr := fc.gateway.Close()
	connErr := fc.grpcConn.Close()
	if gwErr != nil {
		return gwErr
	}
	return connErr
}

// fabricConnect returns the production connector: gRPC dial per the
// connection profile, X.509 identity from the wallet entry, and a
// Fabric Gateway session bound to the configured channel and chaincode.
// All timeouts derive from the configured gateway deadline so no submit
// waits unbounded.
func fabricConnect(cfg *config.FabricConfig) connectFunc {
	return func(ctx context.Context, profile *ConnectionProfile, id *Identity) (connection, error) {
		peer, err := profile.Peer(cfg.PeerName)
		if err != nil {
			return nil, err
		}

		pool, err := peer.TLSCertPool()
		if err != nil {
			return nil, err
		}

		transport := insecure.NewCredentials()
		if pool != nil {
			transport = credentials.NewClientTLSFromCert(pool, peer.HostnameOverride())
		}

		grpcConn, err := grpc.NewClient(peer.Endpoint(), grpc.WithTransportCredentials(transport))
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection to %s: %w", peer.Endpoint(), err)
		}

		cert, err := fabricidentity.CertificateFromPEM([]byte(id.Certificate))
		if err != nil {
			grpcConn.Close()
			return nil, fmt.Errorf("failed to parse identity certificate: %w", err)
		}

		x509ID, err := fabricidentity.NewX509Identity(id.MSPID, cert)
		if err != nil {
			grpcConn.Close()
			return nil, fmt.Errorf("failed to build X.509 identity: %w", err)
		}

		privateKey, err := fabricidentity.PrivateKeyFromPEM([]byte(id.PrivateKey))
		if err != nil {
			grpcConn.Close()
			return nil, fmt.Errorf("failed to parse identity private key: %w", err)
		}

		sign, err := fabricidentity.NewPrivateKeySign(privateKey)
		if err != nil {
			grpcConn.Close()
			return nil, fmt.Errorf("failed to build signer: %w", err)
		}

		timeout := time.Duration(cfg.GatewayTimeout) * time.Second

		gw, err := client.Connect(
			x509ID,
			client.WithSign(sign),
			client.WithClientConnection(grpcConn),
			client.WithEvaluateTimeout(timeout),
			client.WithEndorseTimeout(timeout),
			client.WithSubmitTimeout(timeout),
			client.WithCommitStatusTimeout(timeout),
		)
		if err != nil {
			grpcConn.Close()
			return nil, fmt.Errorf("failed to connect to gateway: %w", err)
		}

		network := gw.GetNetwork(cfg.ChannelName)
		contract := network.GetContract(cfg.ChaincodeName)

		return &fabricConnection{
			grpcConn: grpcConn,
			gateway:  gw,
			contract: contract,
		}, nil
	}
}
