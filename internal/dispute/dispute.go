// Package dispute handles contested wager outcomes: filing, counter
// evidence, spectator voting and the moderator resolution record. Settlement
// of the contested funds stays in the wager state machine; this package only
// owns the dispute paperwork.
package dispute

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Somebody914/Wager-Bot/internal/store"
)

var (
	ErrNotFound          = errors.New("dispute_not_found")
	ErrAlreadyOpen       = errors.New("dispute_already_open")
	ErrAlreadyResolved   = errors.New("dispute_already_resolved")
	ErrNotOpposingParty  = errors.New("not_opposing_party")
	ErrParticipantVote   = errors.New("participant_cannot_vote")
	ErrCounterProofTaken = errors.New("counter_proof_already_filed")
	ErrInvalidEvidence   = errors.New("invalid_evidence_url")
)

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Open files a dispute against the wager. At most one dispute can be pending
// per wager.
func (s *Service) Open(ctx context.Context, wagerID, filerID, reason, evidence string) (*store.Dispute, error) {
	if evidence != "" && !ValidEvidenceURL(evidence) {
		return nil, ErrInvalidEvidence
	}
	d, err := s.store.CreateDispute(ctx, wagerID, filerID, reason, evidence)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrAlreadyOpen
	}
	return d, err
}

func (s *Service) Get(ctx context.Context, id string) (*store.Dispute, error) {
	d, err := s.store.GetDispute(ctx, id)
	return d, mapNotFound(err)
}

func (s *Service) PendingByWager(ctx context.Context, wagerID string) (*store.Dispute, error) {
	d, err := s.store.GetPendingDisputeByWager(ctx, wagerID)
	return d, mapNotFound(err)
}

// FileCounterProof lets the party the dispute was filed against answer with
// their own evidence, once.
func (s *Service) FileCounterProof(ctx context.Context, disputeID, userID string, w *store.Wager, evidence string) error {
	if !ValidEvidenceURL(evidence) {
		return ErrInvalidEvidence
	}
	d, err := s.Get(ctx, disputeID)
	if err != nil {
		return err
	}
	if d.Status != store.DisputePending {
		return ErrAlreadyResolved
	}
	if !w.IsParticipant(userID) || userID == d.FilerID {
		return ErrNotOpposingParty
	}
	err = s.store.AddCounterProof(ctx, disputeID, evidence)
	if errors.Is(err, store.ErrConflict) {
		return ErrCounterProofTaken
	}
	return err
}

// CastVote records a spectator's non-binding vote. Participants cannot vote
// on their own wager; a repeat vote replaces the previous one.
func (s *Service) CastVote(ctx context.Context, disputeID, voterID string, w *store.Wager, side store.Side) error {
	if w.IsParticipant(voterID) {
		return ErrParticipantVote
	}
	err := s.store.UpsertVote(ctx, disputeID, voterID, side)
	if errors.Is(err, store.ErrConflict) {
		return ErrAlreadyResolved
	}
	return mapNotFound(err)
}

// Tally is the current vote count per side.
type Tally struct {
	Creator  int `json:"creator"`
	Opponent int `json:"opponent"`
}

func (s *Service) VoteTally(ctx context.Context, disputeID string) (*Tally, error) {
	creator, opponent, err := s.store.CountVotes(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	return &Tally{Creator: creator, Opponent: opponent}, nil
}

// MarkResolved records the moderator verdict on the dispute row. The caller
// settles funds and reputation before this.
func (s *Service) MarkResolved(ctx context.Context, disputeID, winnerID, resolvedBy, resolution string) error {
	err := s.store.ResolveDispute(ctx, disputeID, winnerID, resolvedBy, resolution, time.Now().UTC())
	if errors.Is(err, store.ErrConflict) {
		return ErrAlreadyResolved
	}
	return err
}

var evidenceHosts = []string{
	"discord.com",
	"cdn.discordapp.com",
	"media.discordapp.net",
	"imgur.com",
	"i.imgur.com",
	"youtube.com",
	"youtu.be",
	"streamable.com",
	"twitch.tv",
	"clips.twitch.tv",
}

// ValidEvidenceURL accepts https links to the known clip and screenshot
// hosts.
func ValidEvidenceURL(raw string) bool {
	if !strings.HasPrefix(raw, "https://") {
		return false
	}
	rest := strings.TrimPrefix(raw, "https://")
	host := rest
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		host = rest[:i]
	}
	host = strings.ToLower(host)
	for _, h := range evidenceHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func mapNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
