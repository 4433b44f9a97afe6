package wager

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Somebody914/Wager-Bot/internal/notify"
	"github.com/Somebody914/Wager-Bot/internal/reputation"
	"github.com/Somebody914/Wager-Bot/internal/store"
)

// SweepExpired enforces both deadline rules: a ready check that timed out
// cancels the wager with no-show penalties, and an unanswered win claim
// completes in the submitter's favor. Each item fails independently; the
// deadline condition persists, so a failed item is retried next tick.
func (s *Service) SweepExpired(ctx context.Context) error {
	now := s.now()

	expired, err := s.store.ListExpiredReadyChecks(ctx, now)
	if err != nil {
		return err
	}
	for i := range expired {
		if err := s.expireReadyCheck(ctx, &expired[i]); err != nil {
			metricSweepItemErrorsTotal.Add(1)
			log.Error().Err(err).Str("wager_id", expired[i].ID).Msg("ready check expiry failed")
		}
	}

	unconfirmed, err := s.store.ListExpiredConfirmations(ctx, now)
	if err != nil {
		return err
	}
	for i := range unconfirmed {
		if err := s.expireConfirmation(ctx, &unconfirmed[i]); err != nil {
			metricSweepItemErrorsTotal.Add(1)
			log.Error().Err(err).Str("wager_id", unconfirmed[i].ID).Msg("confirmation expiry failed")
		}
	}
	return nil
}

func (s *Service) expireReadyCheck(ctx context.Context, w *store.Wager) error {
	err := s.store.TransitionStatus(ctx, w.ID,
		[]store.WagerStatus{store.StatusPendingReady}, store.StatusCancelled)
	if err != nil {
		return s.conflictStatus(ctx, "ready_expiry", w.ID, err, store.StatusPendingReady)
	}
	metricSweepReadyExpired.Add(1)
	s.refundAll(ctx, w, "ready check expired")
	if w.Kind == store.KindOpenRoster {
		parts, err := s.store.ListParticipants(ctx, w.ID)
		if err != nil {
			log.Error().Err(err).Str("wager_id", w.ID).Msg("participant penalty listing failed")
		}
		for _, p := range parts {
			ready := (p.Side == store.SideCreator && w.CreatorReady) ||
				(p.Side == store.SideOpponent && w.OpponentReady)
			if !ready {
				s.recordRep(ctx, p.UserID, reputation.NoShow, w.ID, "missed ready check")
			}
		}
	} else {
		if !w.CreatorReady {
			s.recordRep(ctx, w.CreatorID, reputation.NoShow, w.ID, "missed ready check")
		}
		if !w.OpponentReady && w.OpponentID != "" {
			s.recordRep(ctx, w.OpponentID, reputation.NoShow, w.ID, "missed ready check")
		}
	}
	s.emit(notify.EventReadyCheckExpiry, w, "", nil)
	return nil
}

func (s *Service) expireConfirmation(ctx context.Context, w *store.Wager) error {
	if w.SubmittedBy == "" {
		return &WrongStatusError{Operation: "confirm_expiry", Current: w.Status}
	}
	_, _, err := s.completeAs(ctx, w, w.SubmittedBy, []store.WagerStatus{store.StatusPendingConfirmation})
	if err != nil {
		return err
	}
	metricSweepConfirmExpired.Add(1)
	return nil
}
