package ledger

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ConnectionProfile is the static configuration describing how to reach
// the ledger network's endpoints. Only the peer section is consumed;
// the rest of the document is passed over.
type ConnectionProfile struct {
	Name  string                 `json:"name"`
	Peers map[string]peerProfile `json:"peers"`
}

type peerProfile struct {
	URL        string `json:"url"`
	TLSCACerts struct {
		PEM string `json:"pem"`
	} `json:"tlsCACerts"`
	GRPCOptions map[string]interface{} `json:"grpcOptions"`
}

// LoadConnectionProfile reads and parses the connection profile JSON.
func LoadConnectionProfile(path string) (*ConnectionProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("connection profile not found: %s: %w", path, err)
	}

	var profile ConnectionProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse connection profile %s: %w", path, err)
	}

	if len(profile.Peers) == 0 {
		return nil, fmt.Errorf("connection profile %s declares no peers", path)
	}

	return &profile, nil
}

// Peer returns the named peer entry, or any peer when name is empty.
func (p *ConnectionProfile) Peer(name string) (peerProfile, error) {
	if name != "" {
		peer, ok := p.Peers[name]
		if !ok {
			return peerProfile{}, fmt.Errorf("peer %q not present in connection profile", name)
		}
		return peer, nil
	}
	for _, peer := range p.Peers {
		return peer, nil
	}
	return peerProfile{}, fmt.Errorf("connection profile declares no peers")
}

// Endpoint returns the peer's gRPC dial target with any scheme prefix
// stripped.
func (pp peerProfile) Endpoint() string {
	endpoint := pp.URL
	for _, scheme := range []string{"grpcs://", "grpc://"} {
		endpoint = strings.TrimPrefix(endpoint, scheme)
	}
	return endpoint
}

// TLSCertPool builds a certificate pool from the peer's TLS CA
// material. It returns nil when the profile carries none, in which
// case the dial falls back to insecure transport.
func (pp peerProfile) TLSCertPool() (*x509.CertPool, error) {
	if pp.TLSCACerts.PEM == "" {
		return nil, nil
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(pp.TLSCACerts.PEM)) {
		return nil, fmt.Errorf("failed to parse peer TLS CA certificate")
	}
	return pool, nil
}

// HostnameOverride returns the TLS server-name override configured for
// the peer, if any.
func (pp peerProfile) HostnameOverride() string {
	if pp.GRPCOptions == nil {
		return ""
	}
	if override, ok := pp.GRPCOptions["ssl-target-name-override"].(string); ok {
		return override
	}
	return ""
}
