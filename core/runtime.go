// Package core wires the DID/SBT Ledger, Insurance Vault, and Event Factory
// into a single running process and records each event declaration and
// donate-and-vote call made through it to an append-only audit log. Calls
// made directly on the exported Ledger, Vault, or a DAO are not recorded.
// It replaces the teacher's block/consensus/VM
// machinery, which has no role in this protocol (see DESIGN.md).
package core

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/go-kit/log"

	"github.com/aegis-protocol/aegis-core/clock"
	"github.com/aegis-protocol/aegis-core/crypto"
	"github.com/aegis-protocol/aegis-core/event"
	"github.com/aegis-protocol/aegis-core/eventaudit"
	"github.com/aegis-protocol/aegis-core/eventdao"
	"github.com/aegis-protocol/aegis-core/factory"
	"github.com/aegis-protocol/aegis-core/ledger"
	"github.com/aegis-protocol/aegis-core/types"
	"github.com/aegis-protocol/aegis-core/vault"
)

// EventPinner is the audit-storage surface the Runtime consumes to pin a
// declared event's details_json payload off-chain. Declared as an
// interface so the Runtime is testable without a live IPFS node.
type EventPinner interface {
	PinEventRecord(rec eventaudit.EventRecord, now time.Time) (types.Hash, error)
}

// Hasher computes a stable identifier for a value, mirroring the teacher's
// Hasher[T] pattern used to identify transactions and blocks.
type Hasher[T any] interface {
	Hash(T) types.Hash
}

// AuditRecord is one entry in the Runtime's append-only audit log: the
// caller, the operation, and the outcome, stamped with the injected clock.
type AuditRecord struct {
	Hash      types.Hash
	Operation string
	Caller    crypto.PublicKey
	Outcome   string
	Err       string
	Timestamp int64
}

// AuditHasher hashes an AuditRecord by its operation, caller, outcome, and
// timestamp, following the same byte-concatenation-then-sha256 shape the
// teacher's transaction hashers use.
type AuditHasher struct{}

func (AuditHasher) Hash(r AuditRecord) types.Hash {
	buf := []byte(r.Operation)
	buf = append(buf, r.Caller...)
	buf = append(buf, []byte(r.Outcome)...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.Timestamp))
	return types.HashFromBytes(buf)
}

// Runtime owns one instance each of the Ledger, Vault, and Factory, and
// records every DeclareEvent and DonateAndVote call made through its own
// methods. It is the process-level
// substrate that supplies "caller" to each component, as spec.md §6 assumes.
type Runtime struct {
	mu sync.Mutex

	logger log.Logger
	clock  clock.Clock

	Ledger  *ledger.Ledger
	Vault   *vault.Vault
	Factory *factory.Factory
	pinner  EventPinner

	auditLog []AuditRecord
}

// Config bundles the immutable construction parameters for a Runtime.
type Config struct {
	LedgerAdmin       crypto.PublicKey
	VaultAdmin        crypto.PublicKey
	InitialFunder     crypto.PublicKey
	AuthorizedFactory crypto.PublicKey
	AuthorizedBridge  crypto.PublicKey
	FactoryIdentity   crypto.PublicKey
	Clock             clock.Clock
	Logger            log.Logger
	// Pinner is optional: when set, every successfully declared event's
	// details_json is pinned for audit retrieval. A nil Pinner simply skips
	// pinning (development and test runs commonly have no IPFS node).
	Pinner EventPinner
}

// NewRuntime wires a Ledger, Vault, and Factory together per cfg. The Vault
// trusts AuthorizedFactory as the only caller of ReleaseInitialFunding, and
// the Factory presents FactoryIdentity to it, so the two must be the same
// identity for releases to succeed.
func NewRuntime(cfg Config) *Runtime {
	l := ledger.New(cfg.LedgerAdmin, cfg.Clock)
	v := vault.New(cfg.VaultAdmin, cfg.InitialFunder, cfg.AuthorizedFactory)
	f := factory.New(cfg.FactoryIdentity, cfg.AuthorizedBridge, &factoryVaultAdapter{v: v, self: cfg.FactoryIdentity}, l, cfg.Clock)

	return &Runtime{
		logger:  cfg.Logger,
		clock:   cfg.Clock,
		Ledger:  l,
		Vault:   v,
		Factory: f,
		pinner:  cfg.Pinner,
	}
}

// factoryVaultAdapter adapts *vault.Vault to factory.VaultReleaser. The
// caller identity the Factory presents is forwarded to the Vault unchanged.
type factoryVaultAdapter struct {
	v    *vault.Vault
	self crypto.PublicKey
}

func (a *factoryVaultAdapter) ReleaseInitialFunding(caller crypto.PublicKey, daoID types.Hash, ev event.ValidatedEvent) (string, error) {
	return a.v.ReleaseInitialFunding(caller, daoID, ev)
}

// DeclareEvent runs Factory.DeclareEvent and appends an audit record,
// following the same "processed DAO ..." logging shape as the teacher's
// blockchain processor.
func (r *Runtime) DeclareEvent(caller crypto.PublicKey, ev event.ValidatedEvent) (types.Hash, error) {
	daoID, err := r.Factory.DeclareEvent(caller, ev)
	r.record("declare_event", caller, outcomeOf(daoID, err), err)
	if err == nil {
		r.logger.Log("msg", "declared event", "dao", daoID, "event_type", ev.EventType, "severity", ev.Severity)
		r.pinEventRecord(daoID, ev)
	} else {
		r.logger.Log("msg", "declare event failed", "caller", caller, "error", err.Error())
	}
	return daoID, err
}

// pinEventRecord best-effort pins ev's audit record when a Pinner is
// configured. A pinning failure is logged, never returned: the declaration
// itself already succeeded and is not rolled back for an audit-storage
// hiccup.
func (r *Runtime) pinEventRecord(daoID types.Hash, ev event.ValidatedEvent) {
	if r.pinner == nil {
		return
	}

	rec := eventaudit.EventRecord{
		EventType:   ev.EventType,
		Severity:    string(ev.Severity),
		DetailsJSON: ev.DetailsJSON,
	}
	if _, err := r.pinner.PinEventRecord(rec, r.clock.Now()); err != nil {
		r.logger.Log("msg", "failed to pin event record", "dao", daoID, "error", err.Error())
	}
}

// DonateAndVote looks up the DAO by id and forwards the call, auditing the
// outcome. Returns false if no DAO is registered under id.
func (r *Runtime) DonateAndVote(caller crypto.PublicKey, daoID types.Hash, amount uint64, proposalID uint64, inFavor bool) (string, bool) {
	dao, ok := r.Factory.GetDAO(daoID)
	if !ok {
		return "", false
	}

	result := dao.DonateAndVote(caller, amount, proposalID, inFavor)
	r.record("donate_and_vote", caller, result, nil)
	r.logger.Log("msg", "processed donate and vote", "dao", daoID, "caller", caller, "proposal", proposalID)
	return result, true
}

// GetDAO exposes the registered DAO to callers (e.g. the API layer) that
// need direct access to its query surface or to SubmitProposal. Calls made
// on the returned DAO are not recorded in the audit log.
func (r *Runtime) GetDAO(daoID types.Hash) (*eventdao.DAO, bool) {
	return r.Factory.GetDAO(daoID)
}

// AuditTrail returns a snapshot of every recorded operation, in the order
// they were recorded.
func (r *Runtime) AuditTrail() []AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]AuditRecord, len(r.auditLog))
	copy(out, r.auditLog)
	return out
}

func (r *Runtime) record(operation string, caller crypto.PublicKey, outcome string, err error) {
	rec := AuditRecord{
		Operation: operation,
		Caller:    caller,
		Outcome:   outcome,
		Timestamp: r.clock.Now().Unix(),
	}
	if err != nil {
		rec.Err = err.Error()
	}
	rec.Hash = AuditHasher{}.Hash(rec)

	r.mu.Lock()
	r.auditLog = append(r.auditLog, rec)
	r.mu.Unlock()
}

func outcomeOf(daoID types.Hash, err error) string {
	if err != nil {
		return "failed: " + err.Error()
	}
	return "declared " + daoID.String()
}
