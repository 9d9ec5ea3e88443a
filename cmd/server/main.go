package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aegis-protocol/aegis-core/api"
	"github.com/aegis-protocol/aegis-core/clock"
	"github.com/aegis-protocol/aegis-core/core"
	"github.com/aegis-protocol/aegis-core/crypto"
	"github.com/aegis-protocol/aegis-core/eventaudit"
	"github.com/aegis-protocol/aegis-core/metrics"
)

func main() {
	var (
		listenAddr  string
		bridgeHex   string
		funderHex   string
		vaultAdmin  string
		ledgerAdmin string
		ipfsNode    string
	)
	flag.StringVar(&listenAddr, "listen", ":3000", "HTTP listen address")
	flag.StringVar(&bridgeHex, "bridge", "", "hex-encoded public key of the authorized bridge identity")
	flag.StringVar(&funderHex, "initial-funder", "", "hex-encoded public key of the vault's initial funder")
	flag.StringVar(&vaultAdmin, "vault-admin", "", "hex-encoded public key of the vault admin")
	flag.StringVar(&ledgerAdmin, "ledger-admin", "", "hex-encoded public key of the ledger admin")
	flag.StringVar(&ipfsNode, "ipfs-node", "", "IPFS API address for audit-record pinning (empty disables pinning)")
	flag.Parse()

	logger := log.NewLogfmtLogger(os.Stderr)

	bridge, funder, vAdmin, lAdmin := resolveOperatorIdentities(logger, bridgeHex, funderHex, vaultAdmin, ledgerAdmin)

	factoryIdentity := crypto.IdentityFromBytes([]byte("aegis-core/event-factory"))

	var pinner core.EventPinner
	if ipfsNode != "" {
		pinner = eventaudit.NewStore(ipfsNode)
	}

	rt := core.NewRuntime(core.Config{
		LedgerAdmin:       lAdmin,
		VaultAdmin:        vAdmin,
		InitialFunder:     funder,
		AuthorizedFactory: factoryIdentity,
		AuthorizedBridge:  bridge,
		FactoryIdentity:   factoryIdentity,
		Clock:             clock.New(),
		Logger:            logger,
		Pinner:            pinner,
	})

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
	server := api.NewServer(listenAddr, rt, reg)

	logger.Log("msg", "starting server", "addr", listenAddr)
	if err := server.Start(); err != nil {
		logger.Log("msg", "server exited", "error", err.Error())
		os.Exit(1)
	}
}

// resolveOperatorIdentities decodes each operator-supplied identity flag,
// falling back to a deterministic development identity (derived the same
// way a synthetic DAO identity is, see crypto.IdentityFromBytes) when a flag
// is left empty, so the server is runnable without pre-generated keys.
func resolveOperatorIdentities(logger log.Logger, bridgeHex, funderHex, vaultAdminHex, ledgerAdminHex string) (bridge, funder, vaultAdmin, ledgerAdmin crypto.PublicKey) {
	decodeOrDevDefault := func(hexValue, label string) crypto.PublicKey {
		if hexValue == "" {
			logger.Log("msg", "using deterministic development identity", "role", label)
			return crypto.IdentityFromBytes([]byte("aegis-core/dev/" + label))
		}
		key, err := crypto.PublicKeyFromHex(hexValue)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid %s public key: %v\n", label, err)
			os.Exit(1)
		}
		return key
	}

	bridge = decodeOrDevDefault(bridgeHex, "bridge")
	funder = decodeOrDevDefault(funderHex, "initial-funder")
	vaultAdmin = decodeOrDevDefault(vaultAdminHex, "vault-admin")
	ledgerAdmin = decodeOrDevDefault(ledgerAdminHex, "ledger-admin")
	return bridge, funder, vaultAdmin, ledgerAdmin
}
