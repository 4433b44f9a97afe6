// Package reputation scores user conduct from an append-only event log and
// gates wager creation and participation on the result.
package reputation

import (
	"context"
	"fmt"

	"github.com/Somebody914/Wager-Bot/internal/store"
)

// Event kinds and their point values. The catalog is fixed; Record rejects
// anything outside it.
const (
	WagerComplete = "wager_complete"
	NoShow        = "no_show"
	FalseWinClaim = "false_win_claim"
	DisputeWon    = "dispute_won"
	DisputeLost   = "dispute_lost"
	ConfirmQuick  = "confirm_quick"
)

var catalog = map[string]int{
	WagerComplete: 2,
	NoShow:        -10,
	FalseWinClaim: -25,
	DisputeWon:    5,
	DisputeLost:   -15,
	ConfirmQuick:  1,
}

const (
	baseScore = 50
	minScore  = 0
	maxScore  = 100
)

type ErrUnknownKind struct {
	Kind string
}

func (e *ErrUnknownKind) Error() string {
	return fmt.Sprintf("unknown_reputation_kind: %s", e.Kind)
}

// InsufficientError reports a failed gate check with the numbers behind it.
type InsufficientError struct {
	Score    int
	Required int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient_reputation: score %d, required %d", e.Score, e.Required)
}

type Service struct {
	store            *store.Store
	createScore      int
	participateScore int
}

func NewService(st *store.Store, createScore, participateScore int) *Service {
	return &Service{store: st, createScore: createScore, participateScore: participateScore}
}

// Record appends a catalog event to the user's log.
func (s *Service) Record(ctx context.Context, userID, kind, wagerID, description string) error {
	points, ok := catalog[kind]
	if !ok {
		return &ErrUnknownKind{Kind: kind}
	}
	_, err := s.store.AddReputationEvent(ctx, userID, kind, points, wagerID, description)
	return err
}

// Score folds the user's event log over the base score, clamping each step so
// the running value never leaves [0, 100]. A fresh user scores 50.
func (s *Service) Score(ctx context.Context, userID string) (int, error) {
	events, err := s.store.ListReputationEvents(ctx, userID)
	if err != nil {
		return 0, err
	}
	return foldScore(events), nil
}

func foldScore(events []store.ReputationEvent) int {
	score := baseScore
	for _, e := range events {
		score += e.Points
		if score < minScore {
			score = minScore
		}
		if score > maxScore {
			score = maxScore
		}
	}
	return score
}

func (s *Service) CheckCanCreate(ctx context.Context, userID string) error {
	return s.check(ctx, userID, s.createScore)
}

func (s *Service) CheckCanParticipate(ctx context.Context, userID string) error {
	return s.check(ctx, userID, s.participateScore)
}

func (s *Service) check(ctx context.Context, userID string, required int) error {
	score, err := s.Score(ctx, userID)
	if err != nil {
		return err
	}
	if score < required {
		return &InsufficientError{Score: score, Required: required}
	}
	return nil
}

// Standing maps a score onto the label shown next to a user's name.
func Standing(score int) string {
	switch {
	case score >= 75:
		return "trusted"
	case score >= 40:
		return "neutral"
	default:
		return "risky"
	}
}

// History returns the newest events for display.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]store.ReputationEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListRecentReputationEvents(ctx, userID, limit)
}
