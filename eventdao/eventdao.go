// Package eventdao implements the per-disaster Event DAO: treasury,
// proposal book, vote ledger, execution engine, and SBT-minting client. It
// depends on the DID/SBT Ledger for participation credentials (spec §2).
package eventdao

import (
	"fmt"
	"sync"

	"github.com/aegis-protocol/aegis-core/crypto"
	"github.com/aegis-protocol/aegis-core/event"
	"github.com/aegis-protocol/aegis-core/types"
)

// ApprovalThreshold is the strict lower bound on votes_for required for a
// proposal to auto-execute. Part of the external contract: changing it is
// a protocol change (spec §6, §9.6).
const ApprovalThreshold = 5

// donorParticipantBadge is the badge_type minted on a successful vote.
const donorParticipantBadge = "Donor & Participant"

// SBTMinter is the DID/SBT Ledger surface the Event DAO consumes. Declared
// as an interface (rather than importing *ledger.Ledger directly) the same
// way the teacher's core package depends on a Validator/Hasher interface
// instead of a concrete type, which also makes the DAO trivially testable
// against a fake minter.
type SBTMinter interface {
	MintSBT(caller, recipient crypto.PublicKey, eventName, badgeType string) (string, error)
}

// Proposal is a mutable record owned by its DAO.
type Proposal struct {
	ID              uint64
	Proposer        crypto.PublicKey
	Title           string
	Description     string
	AmountRequested uint64
	Recipient       crypto.PublicKey
	VotesFor        uint64
	VotesAgainst    uint64
	Voters          map[string]bool
	IsExecuted      bool
}

// ProposalInfo is the query-side snapshot projection of a Proposal: it
// omits the voter set, which is not part of the public read surface.
type ProposalInfo struct {
	ID              uint64
	Proposer        crypto.PublicKey
	Title           string
	Description     string
	AmountRequested uint64
	Recipient       crypto.PublicKey
	VotesFor        uint64
	VotesAgainst    uint64
	IsExecuted      bool
}

// DAO is a single per-disaster Event DAO instance. Its lifecycle is
// uninitialized -> initialized -> operational; the first transition
// happens exactly once.
type DAO struct {
	mu sync.Mutex

	id     types.Hash
	self   crypto.PublicKey // the DAO's own identity, used as minter caller
	ledger SBTMinter

	initialized      bool
	eventData        *event.ValidatedEvent
	factoryPrincipal crypto.PublicKey

	treasuryBalance uint64
	donors          map[string]uint64
	proposals       map[uint64]*Proposal
	nextProposalID  uint64
}

// New creates an uninitialized Event DAO identified by id, backed by
// ledger for SBT minting.
func New(id types.Hash, ledger SBTMinter) *DAO {
	return &DAO{
		id:      id,
		self:    crypto.IdentityFromBytes(id[:]),
		ledger:  ledger,
		donors:  make(map[string]uint64),
		proposals: make(map[uint64]*Proposal),
	}
}

// ID returns the DAO's stable identity.
func (d *DAO) ID() types.Hash {
	return d.id
}

// Initialize stores event_data and factory_principal. A second call is a
// no-op that returns the "already initialized" marker without touching
// state, matching spec §4.3's idempotent-by-refusal contract.
func (d *DAO) Initialize(factoryPrincipal crypto.PublicKey, ev event.ValidatedEvent) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return "already initialized"
	}

	eventCopy := ev
	d.eventData = &eventCopy
	d.factoryPrincipal = factoryPrincipal
	d.initialized = true

	return "initialized"
}

// GetEventDetails is a side-effect-free query.
func (d *DAO) GetEventDetails() (event.ValidatedEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.eventData == nil {
		return event.ValidatedEvent{}, false
	}
	return *d.eventData, true
}

// SubmitProposal records a new proposal. Any caller may propose.
func (d *DAO) SubmitProposal(proposer crypto.PublicKey, title, description string, amount uint64, recipient crypto.PublicKey) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextProposalID
	d.proposals[id] = &Proposal{
		ID:              id,
		Proposer:        proposer,
		Title:           title,
		Description:     description,
		AmountRequested: amount,
		Recipient:       recipient,
		Voters:          make(map[string]bool),
	}
	d.nextProposalID++

	return fmt.Sprintf("Proposal submitted with ID: %d", id)
}

// Donate adds amount to donors[caller] and to the treasury. Any caller may
// donate.
func (d *DAO) Donate(caller crypto.PublicKey, amount uint64) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.donateLocked(caller, amount)
}

func (d *DAO) donateLocked(caller crypto.PublicKey, amount uint64) string {
	if amount == 0 {
		return ErrDonateZeroAmount.Error()
	}

	d.donors[caller.String()] += amount
	d.treasuryBalance += amount
	return fmt.Sprintf("donation of %d recorded", amount)
}

// DonateAndVote is the composite operation described in spec §4.3: donate,
// then vote, then (on a successful vote) request an SBT mint. The donation
// is never rolled back, even if the vote or the mint subsequently fails —
// see SPEC_FULL.md §9 item 2 for why this is the intended behavior rather
// than a bug to fix.
func (d *DAO) DonateAndVote(caller crypto.PublicKey, amount uint64, proposalID uint64, inFavor bool) string {
	d.mu.Lock()
	donationMsg := d.donateLocked(caller, amount)
	voteMsg, voteErr := d.voteLocked(caller, proposalID, inFavor)
	d.mu.Unlock()

	if voteErr != nil {
		return fmt.Sprintf("%s; vote failed: %s", donationMsg, voteErr.Error())
	}

	mintMsg, mintErr := d.ledger.MintSBT(d.self, caller, d.eventTypeOrUnknownLabel(), donorParticipantBadge)
	if mintErr != nil {
		return fmt.Sprintf("%s; %s; SBT mint failed: %s", donationMsg, voteMsg, mintErr.Error())
	}

	return fmt.Sprintf("%s; %s; %s", donationMsg, voteMsg, mintMsg)
}

func (d *DAO) eventTypeOrUnknownLabel() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.eventData == nil || d.eventData.EventType == "" {
		return "Unknown Event"
	}
	return d.eventData.EventType
}

// voteLocked casts caller's vote on proposalID and attempts
// auto-execution. Must be called with d.mu held.
func (d *DAO) voteLocked(caller crypto.PublicKey, proposalID uint64, inFavor bool) (string, error) {
	proposal, ok := d.proposals[proposalID]
	if !ok {
		return "", ErrProposalNotFoundErr
	}

	callerKey := caller.String()
	if _, isDonor := d.donors[callerKey]; !isDonor {
		return "", fmt.Errorf("caller is not a donor")
	}
	if proposal.Voters[callerKey] {
		return "", ErrAlreadyVotedErr
	}

	proposal.Voters[callerKey] = true
	if inFavor {
		proposal.VotesFor++
	} else {
		proposal.VotesAgainst++
	}

	d.tryExecuteProposalLocked(proposal)

	return "vote cast successfully", nil
}

// tryExecuteProposalLocked implements the auto-execution rule: a proposal
// transitions to executed exactly when, immediately after a vote tally
// update, votes_for > ApprovalThreshold, it was previously open, and the
// treasury covers the requested amount. Must be called with d.mu held.
func (d *DAO) tryExecuteProposalLocked(p *Proposal) {
	if p.IsExecuted {
		return
	}
	if p.VotesFor <= ApprovalThreshold {
		return
	}
	if d.treasuryBalance < p.AmountRequested {
		return
	}

	d.treasuryBalance -= p.AmountRequested
	p.IsExecuted = true
}

// GetAllProposals returns a snapshot projection of every proposal, without
// voter sets.
func (d *DAO) GetAllProposals() []ProposalInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]ProposalInfo, 0, len(d.proposals))
	for _, p := range d.proposals {
		out = append(out, ProposalInfo{
			ID:              p.ID,
			Proposer:        p.Proposer,
			Title:           p.Title,
			Description:     p.Description,
			AmountRequested: p.AmountRequested,
			Recipient:       p.Recipient,
			VotesFor:        p.VotesFor,
			VotesAgainst:    p.VotesAgainst,
			IsExecuted:      p.IsExecuted,
		})
	}
	return out
}

// GetTreasuryBalance is a side-effect-free query.
func (d *DAO) GetTreasuryBalance() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.treasuryBalance
}

// GetDonorAmount is a side-effect-free query returning the cumulative
// amount donated by donor (0 if donor has never donated).
func (d *DAO) GetDonorAmount(donor crypto.PublicKey) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.donors[donor.String()]
}

// IsDonor reports whether caller is present in the donors map — the
// gating condition design note §9 calls out for voting eligibility.
func (d *DAO) IsDonor(caller crypto.PublicKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.donors[caller.String()]
	return ok
}
