// Package eventaudit stores the audit-grade documents this protocol
// produces — a declared event's details_json blob, and supporting
// documents attached to a proposal — on IPFS, content-addressed and
// checksum-verified. Adapted from the teacher's DAO proposal-metadata IPFS
// client, narrowed to this protocol's two document kinds.
package eventaudit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/aegis-protocol/aegis-core/types"
)

// Store wraps an IPFS node connection with this protocol's document shapes.
type Store struct {
	shell *shell.Shell
}

// NewStore connects to the IPFS HTTP API at nodeURL. An empty nodeURL
// defaults to a local node, matching the teacher's IPFSClient default.
func NewStore(nodeURL string) *Store {
	if nodeURL == "" {
		nodeURL = "localhost:5001"
	}
	return &Store{shell: shell.NewShell(nodeURL)}
}

// EventRecord is the audit document pinned for a declared event: its raw
// details_json payload plus a checksum and the time it was pinned.
type EventRecord struct {
	EventType   string `json:"event_type"`
	Severity    string `json:"severity"`
	DetailsJSON string `json:"details_json"`
	Checksum    string `json:"checksum"`
	PinnedAt    int64  `json:"pinned_at"`
}

// ProposalDocument is a supporting document attached to a proposal (e.g.
// a damage assessment report) referenced by content hash.
type ProposalDocument struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size"`
	Hash     string `json:"hash"`
}

// checksummedRecord stamps rec's PinnedAt and Checksum fields and returns
// the record alongside its final JSON encoding. Kept free of any IPFS
// dependency so it can be tested without a live node.
func checksummedRecord(rec EventRecord, now time.Time) (EventRecord, []byte, error) {
	rec.PinnedAt = now.Unix()
	rec.Checksum = ""

	unchecked, err := json.Marshal(rec)
	if err != nil {
		return EventRecord{}, nil, fmt.Errorf("eventaudit: marshal record: %w", err)
	}
	sum := sha256.Sum256(unchecked)
	rec.Checksum = hex.EncodeToString(sum[:])

	final, err := json.Marshal(rec)
	if err != nil {
		return EventRecord{}, nil, fmt.Errorf("eventaudit: marshal checksummed record: %w", err)
	}
	return rec, final, nil
}

// PinEventRecord uploads rec to IPFS after stamping its checksum, returning
// the content's identifying hash.
func (s *Store) PinEventRecord(rec EventRecord, now time.Time) (types.Hash, error) {
	_, final, err := checksummedRecord(rec, now)
	if err != nil {
		return types.Hash{}, err
	}

	ipfsHash, err := s.shell.Add(bytes.NewReader(final))
	if err != nil {
		return types.Hash{}, fmt.Errorf("eventaudit: upload to IPFS: %w", err)
	}

	if err := s.shell.Pin(ipfsHash); err != nil {
		return types.Hash{}, fmt.Errorf("eventaudit: pin: %w", err)
	}

	return hashOfIPFSIdentifier(ipfsHash), nil
}

// FetchEventRecord retrieves and checksum-verifies the record pinned at
// ipfsHash (the raw IPFS content identifier, not the derived types.Hash —
// callers must keep the mapping from the hash PinEventRecord returned to
// the underlying IPFS CID alongside their own records).
func (s *Store) FetchEventRecord(ipfsHash string) (EventRecord, error) {
	reader, err := s.shell.Cat(ipfsHash)
	if err != nil {
		return EventRecord{}, fmt.Errorf("eventaudit: retrieve from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return EventRecord{}, fmt.Errorf("eventaudit: read IPFS data: %w", err)
	}

	return decodeAndVerify(data)
}

// decodeAndVerify unmarshals an EventRecord and confirms its checksum
// matches its own content, independent of any IPFS dependency.
func decodeAndVerify(data []byte) (EventRecord, error) {
	var rec EventRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return EventRecord{}, fmt.Errorf("eventaudit: unmarshal record: %w", err)
	}

	claimed := rec.Checksum
	rec.Checksum = ""
	recomputed, err := json.Marshal(rec)
	if err != nil {
		return EventRecord{}, fmt.Errorf("eventaudit: re-marshal for checksum: %w", err)
	}
	sum := sha256.Sum256(recomputed)
	if hex.EncodeToString(sum[:]) != claimed {
		return EventRecord{}, fmt.Errorf("eventaudit: checksum mismatch")
	}
	rec.Checksum = claimed

	return rec, nil
}

// UploadProposalDocument uploads an arbitrary supporting document for a
// proposal and returns its reference.
func (s *Store) UploadProposalDocument(name, mimeType string, data []byte) (ProposalDocument, error) {
	ipfsHash, err := s.shell.Add(bytes.NewReader(data))
	if err != nil {
		return ProposalDocument{}, fmt.Errorf("eventaudit: upload document: %w", err)
	}

	return ProposalDocument{
		Name:     name,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Hash:     ipfsHash,
	}, nil
}

// hashOfIPFSIdentifier derives a stable types.Hash from an IPFS content
// identifier string, the same truncate-via-sha256 approach the teacher's
// ipfsHashToTypesHash helper uses.
func hashOfIPFSIdentifier(ipfsHash string) types.Hash {
	return types.HashFromBytes(sha256Sum(ipfsHash))
}

func sha256Sum(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}
