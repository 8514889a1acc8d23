// Command wallet-setup enrolls the gateway's signing identity into the
// file system wallet from crypto material generated by the network's
// certificate authority tooling.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/internal/ledger"
)

func main() {
	var (
		walletPath = flag.String("wallet", "./wallet", "wallet directory")
		label      = flag.String("label", "admin", "wallet label for the identity")
		mspID      = flag.String("msp", "Org1MSP", "MSP ID of the owning organization")
		certPath   = flag.String("cert", "", "path to the PEM certificate (or a signcerts directory)")
		keyPath    = flag.String("key", "", "path to the PEM private key (or a keystore directory)")
		force      = flag.Bool("force", false, "overwrite an existing identity")
	)
	flag.Parse()

	if *certPath == "" || *keyPath == "" {
		flag.Usage()
		log.Fatal("both -cert and -key are required")
	}

	cert, err := readPEM(*certPath)
	if err != nil {
		log.Fatalf("Failed to read certificate: %v", err)
	}

	key, err := readPEM(*keyPath)
	if err != nil {
		log.Fatalf("Failed to read private key: %v", err)
	}

	wallet := ledger.NewFileSystemWallet(*walletPath)

	if wallet.Exists(*label) && !*force {
		log.Fatalf("Identity %q already exists in wallet %q (use -force to overwrite)", *label, *walletPath)
	}

	identity := &ledger.Identity{
		MSPID:       *mspID,
		Certificate: cert,
		PrivateKey:  key,
	}

	if err := wallet.Put(*label, identity); err != nil {
		log.Fatalf("Failed to store identity: %v", err)
	}

	fmt.Printf("Successfully imported identity %q into wallet %q\n", *label, *walletPath)
}

// readPEM reads a PEM file. When given a directory (Fabric CA writes
// keystore files with generated names), it takes the single PEM file
// inside.
func readPEM(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return "", err
		}

		var candidates []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if strings.HasSuffix(name, ".pem") || strings.HasSuffix(name, "_sk") {
				candidates = append(candidates, filepath.Join(path, name))
			}
		}

		if len(candidates) != 1 {
			return "", fmt.Errorf("expected exactly one PEM file in %q, found %d", path, len(candidates))
		}
		path = candidates[0]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
