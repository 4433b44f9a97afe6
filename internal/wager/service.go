// Package wager is the lifecycle state machine. Every operation validates
// its preconditions, performs the guarded status change, and only then moves
// funds through the ledger, so a lost race never leaves money in flight.
package wager

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Somebody914/Wager-Bot/internal/config"
	"github.com/Somebody914/Wager-Bot/internal/dispute"
	"github.com/Somebody914/Wager-Bot/internal/escrow"
	"github.com/Somebody914/Wager-Bot/internal/ledger"
	"github.com/Somebody914/Wager-Bot/internal/notify"
	"github.com/Somebody914/Wager-Bot/internal/reputation"
	"github.com/Somebody914/Wager-Bot/internal/store"
	"github.com/Somebody914/Wager-Bot/internal/verify"
)

const (
	VerdictCreator  = "creator"
	VerdictOpponent = "opponent"
	VerdictCancel   = "cancel"
)

type Service struct {
	store    *store.Store
	ledger   *ledger.Ledger
	rep      *reputation.Service
	disputes *dispute.Service
	escrow   *escrow.Service
	oracle   verify.Oracle
	notifier *notify.Manager

	feeRate        decimal.Decimal
	minStake       decimal.Decimal
	readyTimeout   time.Duration
	confirmTimeout time.Duration
	quickConfirm   time.Duration

	now func() time.Time
}

func NewService(st *store.Store, l *ledger.Ledger, rep *reputation.Service, d *dispute.Service, esc *escrow.Service, oracle verify.Oracle, n *notify.Manager, cfg config.WagerConfig) (*Service, error) {
	feeRate, err := decimal.NewFromString(cfg.PlatformFee)
	if err != nil {
		return nil, &ValidationError{Field: "platform_fee", Message: "not a decimal"}
	}
	minStake, err := decimal.NewFromString(cfg.MinStake)
	if err != nil {
		return nil, &ValidationError{Field: "min_stake", Message: "not a decimal"}
	}
	return &Service{
		store:          st,
		ledger:         l,
		rep:            rep,
		disputes:       d,
		escrow:         esc,
		oracle:         oracle,
		notifier:       n,
		feeRate:        feeRate,
		minStake:       minStake,
		readyTimeout:   time.Duration(cfg.ReadyTimeoutMins) * time.Minute,
		confirmTimeout: time.Duration(cfg.ConfirmTimeoutMins) * time.Minute,
		quickConfirm:   time.Duration(cfg.QuickConfirmMins) * time.Minute,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetClock overrides the service clock in tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

type CreateInput struct {
	CreatorID    string
	OpponentID   string // empty for an open challenge
	Game         string
	Stake        decimal.Decimal
	Kind         Kind
	Verification store.VerificationKind
}

// Create posts a new wager with the creator's stake already held. The wager
// row and the hold commit in one transaction, so neither exists without the
// other.
func (s *Service) Create(ctx context.Context, in CreateInput) (*store.Wager, error) {
	if in.CreatorID == "" {
		return nil, &ValidationError{Field: "creator_id", Message: "required"}
	}
	if in.Game == "" {
		return nil, &ValidationError{Field: "game", Message: "required"}
	}
	if in.Stake.LessThan(s.minStake) {
		return nil, &ValidationError{Field: "stake", Message: "below minimum " + s.minStake.String()}
	}
	if in.OpponentID == in.CreatorID && in.OpponentID != "" {
		return nil, ErrOwnWager
	}
	if err := in.Kind.validate(); err != nil {
		return nil, err
	}
	if in.Kind.Type == store.KindOpenRoster && in.OpponentID != "" {
		return nil, &ValidationError{Field: "opponent_id", Message: "open roster wagers have no fixed opponent"}
	}
	if in.Verification == "" {
		in.Verification = store.VerifyCustom
	}
	if err := s.rep.CheckCanCreate(ctx, in.CreatorID); err != nil {
		return nil, err
	}

	status := store.StatusOpen
	if in.OpponentID != "" {
		status = store.StatusAccepted
	}
	id := store.NewID()
	w := &store.Wager{
		ID:           id,
		CreatorID:    in.CreatorID,
		OpponentID:   in.OpponentID,
		Game:         in.Game,
		Stake:        in.Stake,
		Status:       status,
		Kind:         in.Kind.Type,
		TeamSize:     in.Kind.sideSize(),
		TeamID:       in.Kind.TeamID,
		Verification: in.Verification,
	}
	if err := s.ledger.FundWager(ctx, w, "stake for "+in.Game); err != nil {
		return nil, err
	}
	if in.Kind.Type == store.KindOpenRoster {
		if err := s.store.AddParticipant(ctx, id, in.CreatorID, store.SideCreator); err != nil && !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
	}
	s.emit(notify.EventWagerCreated, w, in.CreatorID, map[string]string{"stake": in.Stake.String(), "game": in.Game})
	return s.store.GetWager(ctx, id)
}

// Accept matches a user against an open wager, or puts up the named
// opponent's stake on a direct challenge. Exactly one concurrent acceptor of
// an open wager wins; everyone else gets their hold back and
// ErrAlreadyAccepted.
func (s *Service) Accept(ctx context.Context, wagerID, userID string) (*store.Wager, error) {
	w, err := s.get(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	if w.Kind == store.KindOpenRoster {
		return nil, &ValidationError{Field: "kind", Message: "join open roster wagers by side"}
	}
	if userID == w.CreatorID {
		return nil, ErrOwnWager
	}

	switch w.Status {
	case store.StatusOpen:
		if err := s.rep.CheckCanParticipate(ctx, userID); err != nil {
			return nil, err
		}
		if err := s.ledger.Hold(ctx, userID, w.Stake, wagerID, "stake for "+w.Game); err != nil {
			return nil, err
		}
		deadline := s.now().Add(s.readyTimeout)
		if err := s.store.AcceptWager(ctx, wagerID, userID, deadline); err != nil {
			if relErr := s.ledger.Release(ctx, userID, w.Stake, wagerID, "lost accept race"); relErr != nil {
				log.Error().Err(relErr).Str("wager_id", wagerID).Msg("stake rollback failed")
			}
			if errors.Is(err, store.ErrConflict) {
				return nil, ErrAlreadyAccepted
			}
			return nil, err
		}
	case store.StatusAccepted:
		if w.OpponentID != userID {
			return nil, ErrNotParticipant
		}
		if err := s.rep.CheckCanParticipate(ctx, userID); err != nil {
			return nil, err
		}
		if err := s.ledger.Hold(ctx, userID, w.Stake, wagerID, "stake for "+w.Game); err != nil {
			return nil, err
		}
		if err := s.store.MoveToReadyCheck(ctx, wagerID, s.now().Add(s.readyTimeout)); err != nil {
			if relErr := s.ledger.Release(ctx, userID, w.Stake, wagerID, "challenge no longer pending"); relErr != nil {
				log.Error().Err(relErr).Str("wager_id", wagerID).Msg("stake rollback failed")
			}
			return nil, s.conflictStatus(ctx, "accept", wagerID, err, store.StatusAccepted)
		}
	default:
		return nil, &WrongStatusError{Operation: "accept", Current: w.Status,
			Allowed: []store.WagerStatus{store.StatusOpen, store.StatusAccepted}}
	}

	w, err = s.get(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	s.emit(notify.EventWagerAccepted, w, userID, nil)
	return w, nil
}

// JoinOpenRoster seats a user on one side of an open-roster wager, holding
// their stake. The wager moves to its ready check once both sides are full.
func (s *Service) JoinOpenRoster(ctx context.Context, wagerID, userID string, side store.Side) (*store.Wager, error) {
	w, err := s.get(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	if w.Kind != store.KindOpenRoster {
		return nil, &ValidationError{Field: "kind", Message: "not an open roster wager"}
	}
	if w.Status != store.StatusOpen {
		return nil, &WrongStatusError{Operation: "join", Current: w.Status,
			Allowed: []store.WagerStatus{store.StatusOpen}}
	}
	if side != store.SideCreator && side != store.SideOpponent {
		return nil, &ValidationError{Field: "side", Message: "must be creator or opponent"}
	}
	if err := s.rep.CheckCanParticipate(ctx, userID); err != nil {
		return nil, err
	}
	count, err := s.store.CountParticipants(ctx, wagerID, side)
	if err != nil {
		return nil, err
	}
	if count >= w.TeamSize {
		return nil, ErrRosterFull
	}
	if err := s.ledger.Hold(ctx, userID, w.Stake, wagerID, "stake for "+w.Game); err != nil {
		return nil, err
	}
	if err := s.store.AddParticipant(ctx, wagerID, userID, side); err != nil {
		if relErr := s.ledger.Release(ctx, userID, w.Stake, wagerID, "seat taken"); relErr != nil {
			log.Error().Err(relErr).Str("wager_id", wagerID).Msg("stake rollback failed")
		}
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrAlreadyJoined
		}
		return nil, err
	}

	full, err := s.rosterFull(ctx, w)
	if err != nil {
		return nil, err
	}
	if full {
		deadline := s.now().Add(s.readyTimeout)
		err := s.store.BeginReadyCheck(ctx, wagerID, store.StatusOpen, deadline)
		if err != nil && !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
	}
	s.emit(notify.EventWagerAccepted, w, userID, map[string]string{"side": string(side)})
	return s.get(ctx, wagerID)
}

func (s *Service) rosterFull(ctx context.Context, w *store.Wager) (bool, error) {
	for _, side := range []store.Side{store.SideCreator, store.SideOpponent} {
		n, err := s.store.CountParticipants(ctx, w.ID, side)
		if err != nil {
			return false, err
		}
		if n < w.TeamSize {
			return false, nil
		}
	}
	return true, nil
}

// SetReady marks the caller's side ready. When both sides are ready the
// match starts.
func (s *Service) SetReady(ctx context.Context, wagerID, userID string) (*store.Wager, error) {
	w, err := s.get(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	if w.Status != store.StatusPendingReady {
		return nil, &WrongStatusError{Operation: "ready", Current: w.Status,
			Allowed: []store.WagerStatus{store.StatusPendingReady}}
	}
	side, err := s.sideOf(ctx, w, userID)
	if err != nil {
		return nil, err
	}
	w, err = s.store.SetReadyFlag(ctx, wagerID, side)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrAlreadyReady
	}
	if err != nil {
		return nil, err
	}
	if w.CreatorReady && w.OpponentReady {
		err := s.store.TransitionStatus(ctx, wagerID,
			[]store.WagerStatus{store.StatusPendingReady}, store.StatusInProgress)
		if err != nil && !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		w, err = s.get(ctx, wagerID)
		if err != nil {
			return nil, err
		}
		s.emit(notify.EventMatchStarted, w, userID, nil)
	}
	return w, nil
}

type SubmitInput struct {
	WagerID  string
	UserID   string
	MatchRef string
	ProofURL string
}

// Submit records a win claim and opens the confirmation window. Ranked
// wagers try the verification oracle first and fall back to manual evidence
// when it cannot answer; custom wagers always require evidence.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*store.Wager, error) {
	w, err := s.get(ctx, in.WagerID)
	if err != nil {
		return nil, err
	}
	allowed := []store.WagerStatus{store.StatusInProgress, store.StatusPendingVerification}
	if w.Status != store.StatusInProgress && w.Status != store.StatusPendingVerification {
		return nil, &WrongStatusError{Operation: "submit", Current: w.Status, Allowed: allowed}
	}
	if _, err := s.sideOf(ctx, w, in.UserID); err != nil {
		return nil, err
	}

	verified := false
	oracleDown := false
	if w.Verification == store.VerifyRanked && in.MatchRef != "" && s.oracle != nil {
		res, err := s.oracle.VerifyMatch(ctx, w.Game, in.MatchRef)
		switch {
		case errors.Is(err, verify.ErrUnavailable):
			oracleDown = true
			log.Warn().Str("wager_id", w.ID).Msg("oracle unavailable, falling back to manual evidence")
		case err != nil:
			return nil, err
		default:
			if res.Verified && res.WinnerID != "" && res.WinnerID != in.UserID {
				return nil, ErrClaimContradicted
			}
			verified = res.Verified
			if res.MatchRef != "" {
				in.MatchRef = res.MatchRef
			}
		}
	}
	if !verified {
		if in.ProofURL == "" {
			if oracleDown {
				// Park the claim until the oracle answers or the submitter
				// comes back with manual evidence.
				err := s.store.MarkPendingVerification(ctx, in.WagerID, in.UserID, in.MatchRef, allowed)
				if err != nil {
					return nil, s.conflictStatus(ctx, "submit", in.WagerID, err, allowed...)
				}
				w, err = s.get(ctx, in.WagerID)
				if err != nil {
					return nil, err
				}
				s.emit(notify.EventResultSubmitted, w, in.UserID, map[string]string{"verification": "pending"})
				return w, nil
			}
			return nil, ErrProofRequired
		}
		if !dispute.ValidEvidenceURL(in.ProofURL) {
			return nil, &ValidationError{Field: "proof_url", Message: "host not accepted"}
		}
	}

	deadline := s.now().Add(s.confirmTimeout)
	err = s.store.SubmitResult(ctx, in.WagerID, in.UserID, in.MatchRef, in.ProofURL, allowed, deadline)
	if err != nil {
		return nil, s.conflictStatus(ctx, "submit", in.WagerID, err, allowed...)
	}
	w, err = s.get(ctx, in.WagerID)
	if err != nil {
		return nil, err
	}
	s.emit(notify.EventResultSubmitted, w, in.UserID, map[string]string{"proof_url": in.ProofURL})
	return w, nil
}

// Confirm lets the non-submitting side accept the claimed result and settles
// the wager in the submitter's favor.
func (s *Service) Confirm(ctx context.Context, wagerID, userID string) (*store.Wager, error) {
	w, err := s.get(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	if w.Status != store.StatusPendingConfirmation {
		return nil, &WrongStatusError{Operation: "confirm", Current: w.Status,
			Allowed: []store.WagerStatus{store.StatusPendingConfirmation}}
	}
	side, err := s.sideOf(ctx, w, userID)
	if err != nil {
		return nil, err
	}
	submitterSide, err := s.sideOf(ctx, w, w.SubmittedBy)
	if err != nil {
		return nil, err
	}
	if side == submitterSide {
		return nil, ErrSelfConfirm
	}

	if _, _, err := s.completeAs(ctx, w, w.SubmittedBy, []store.WagerStatus{store.StatusPendingConfirmation}); err != nil {
		return nil, err
	}
	if w.SubmittedAt != nil && s.now().Sub(*w.SubmittedAt) <= s.quickConfirm {
		s.recordRep(ctx, userID, reputation.ConfirmQuick, wagerID, "confirmed quickly")
	}
	return s.get(ctx, wagerID)
}

// completeAs settles the wager in winnerID's favor and returns the settled
// rosters. The status change and every settlement leg commit in one
// transaction; a side without an active hold fails the whole settlement and
// the wager keeps its source state.
func (s *Service) completeAs(ctx context.Context, w *store.Wager, winnerID string, from []store.WagerStatus) (winners, losers []string, err error) {
	winners, losers, err = s.settlementSides(ctx, w, winnerID)
	if err != nil {
		return nil, nil, err
	}
	// Each winner is paid out of their matched pair's pot, so the split is
	// exact for any roster size.
	st := settle(w.Stake, s.feeRate, 2)
	err = s.ledger.SettleWager(ctx, store.WagerSettlement{
		WagerID:  w.ID,
		WinnerID: winnerID,
		Winners:  winners,
		Losers:   losers,
		Payout:   st.Payout,
		Stake:    w.Stake,
		From:     from,
		WinMemo:  "won " + w.Game,
		LossMemo: "lost " + w.Game,
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, nil, s.conflictStatus(ctx, "complete", w.ID, err, from...)
	}
	if err != nil {
		log.Error().Err(err).Str("wager_id", w.ID).Msg("settlement failed")
		return nil, nil, err
	}
	metricSettledTotal.Add(1)
	for _, userID := range winners {
		s.recordRep(ctx, userID, reputation.WagerComplete, w.ID, "wager completed")
	}
	for _, userID := range losers {
		s.recordRep(ctx, userID, reputation.WagerComplete, w.ID, "wager completed")
	}
	if err := s.escrow.Release(ctx, w.ID, winnerID, st.Payout); err != nil && !errors.Is(err, escrow.ErrNotFound) {
		log.Warn().Err(err).Str("wager_id", w.ID).Msg("escrow release failed")
	}
	s.emit(notify.EventWagerCompleted, w, winnerID, map[string]string{
		"winner_id": winnerID,
		"payout":    st.Payout.String(),
		"fee":       st.Fee.String(),
	})
	return winners, losers, nil
}

// settlementSides resolves who gets paid and who forfeits. Two-party kinds
// settle creator against opponent; open rosters settle every seat on the
// winner's side against every seat on the other.
func (s *Service) settlementSides(ctx context.Context, w *store.Wager, winnerID string) (winners, losers []string, err error) {
	if w.Kind == store.KindOpenRoster {
		parts, err := s.store.ListParticipants(ctx, w.ID)
		if err != nil {
			return nil, nil, err
		}
		var winnerSide store.Side
		found := false
		for _, p := range parts {
			if p.UserID == winnerID {
				winnerSide = p.Side
				found = true
				break
			}
		}
		if !found {
			return nil, nil, ErrSelfVerdict
		}
		for _, p := range parts {
			if p.Side == winnerSide {
				winners = append(winners, p.UserID)
			} else {
				losers = append(losers, p.UserID)
			}
		}
		if len(losers) == 0 {
			return nil, nil, ErrSelfVerdict
		}
		return winners, losers, nil
	}
	loserID := w.Opponent(winnerID)
	if winnerID == "" || loserID == "" {
		return nil, nil, ErrSelfVerdict
	}
	return []string{winnerID}, []string{loserID}, nil
}

// Dispute freezes the wager while the outcome is contested. No funds move
// until resolution.
func (s *Service) Dispute(ctx context.Context, wagerID, userID, reason, evidence string) (*store.Dispute, error) {
	w, err := s.get(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.sideOf(ctx, w, userID); err != nil {
		return nil, err
	}
	if !canTransition(w.Status, store.StatusDisputed) {
		return nil, &WrongStatusError{Operation: "dispute", Current: w.Status, Allowed: disputableStates}
	}
	d, err := s.disputes.Open(ctx, wagerID, userID, reason, evidence)
	if err != nil {
		return nil, err
	}
	if err := s.store.TransitionStatus(ctx, wagerID, disputableStates, store.StatusDisputed); err != nil {
		// The wager left its disputable state between the check and the
		// update. Void the filing so the pending slot frees up.
		if markErr := s.disputes.MarkResolved(ctx, d.ID, "", "system", "void: wager state changed"); markErr != nil {
			log.Error().Err(markErr).Str("dispute_id", d.ID).Msg("dispute void failed")
		}
		return nil, s.conflictStatus(ctx, "dispute", wagerID, err, disputableStates...)
	}
	if err := s.escrow.Lock(ctx, wagerID); err != nil && !errors.Is(err, escrow.ErrNotFound) {
		var stateErr *escrow.InvalidStateError
		if !errors.As(err, &stateErr) {
			log.Warn().Err(err).Str("wager_id", wagerID).Msg("escrow lock failed")
		}
	}
	s.emit(notify.EventDisputeOpened, w, userID, map[string]string{"reason": reason})
	return d, nil
}

type ResolveInput struct {
	WagerID     string
	ModeratorID string
	Verdict     string // creator, opponent or cancel
	Resolution  string
}

// ResolveDispute applies the moderator verdict: settle for one side, or
// cancel and refund both.
func (s *Service) ResolveDispute(ctx context.Context, in ResolveInput) (*store.Wager, error) {
	w, err := s.get(ctx, in.WagerID)
	if err != nil {
		return nil, err
	}
	if w.Status != store.StatusDisputed {
		return nil, &WrongStatusError{Operation: "resolve", Current: w.Status,
			Allowed: []store.WagerStatus{store.StatusDisputed}}
	}
	d, err := s.disputes.PendingByWager(ctx, in.WagerID)
	if err != nil {
		return nil, err
	}

	switch in.Verdict {
	case VerdictCancel:
		if err := s.store.TransitionStatus(ctx, in.WagerID,
			[]store.WagerStatus{store.StatusDisputed}, store.StatusCancelled); err != nil {
			return nil, s.conflictStatus(ctx, "resolve", in.WagerID, err, store.StatusDisputed)
		}
		s.refundAll(ctx, w, "dispute cancelled")
		if err := s.disputes.MarkResolved(ctx, d.ID, "", in.ModeratorID, in.Resolution); err != nil {
			log.Error().Err(err).Str("dispute_id", d.ID).Msg("dispute close failed")
		}
		s.emit(notify.EventDisputeResolved, w, in.ModeratorID, map[string]string{"verdict": VerdictCancel})
	case VerdictCreator, VerdictOpponent:
		winnerID, err := s.verdictWinner(ctx, w, in.Verdict)
		if err != nil {
			return nil, err
		}
		winners, losers, err := s.completeAs(ctx, w, winnerID, []store.WagerStatus{store.StatusDisputed})
		if err != nil {
			return nil, err
		}
		for _, userID := range winners {
			s.recordRep(ctx, userID, reputation.DisputeWon, w.ID, "dispute resolved in favor")
		}
		for _, userID := range losers {
			s.recordRep(ctx, userID, reputation.DisputeLost, w.ID, "dispute resolved against")
			if w.SubmittedBy == userID {
				s.recordRep(ctx, userID, reputation.FalseWinClaim, w.ID, "claimed a win they did not earn")
			}
		}
		if err := s.disputes.MarkResolved(ctx, d.ID, winnerID, in.ModeratorID, in.Resolution); err != nil {
			log.Error().Err(err).Str("dispute_id", d.ID).Msg("dispute close failed")
		}
		s.emit(notify.EventDisputeResolved, w, in.ModeratorID, map[string]string{"verdict": in.Verdict, "winner_id": winnerID})
	default:
		return nil, &ValidationError{Field: "verdict", Message: "must be creator, opponent or cancel"}
	}
	return s.get(ctx, in.WagerID)
}

// verdictWinner maps a moderator verdict onto a user whose side wins. For
// open rosters the verdict names a side; the earliest seat on that side is
// recorded as the winner.
func (s *Service) verdictWinner(ctx context.Context, w *store.Wager, verdict string) (string, error) {
	side := store.SideCreator
	if verdict == VerdictOpponent {
		side = store.SideOpponent
	}
	if w.Kind == store.KindOpenRoster {
		parts, err := s.store.ListParticipants(ctx, w.ID)
		if err != nil {
			return "", err
		}
		for _, p := range parts {
			if p.Side == side {
				return p.UserID, nil
			}
		}
		return "", ErrSelfVerdict
	}
	if side == store.SideCreator {
		return w.CreatorID, nil
	}
	if w.OpponentID == "" {
		return "", ErrSelfVerdict
	}
	return w.OpponentID, nil
}

// Cancel lets the creator withdraw a wager before the match starts. Held
// stakes on both sides come back.
func (s *Service) Cancel(ctx context.Context, wagerID, userID string) (*store.Wager, error) {
	w, err := s.get(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	if userID != w.CreatorID {
		return nil, ErrNotCreator
	}
	cancellable := []store.WagerStatus{store.StatusOpen, store.StatusAccepted, store.StatusPendingReady}
	if !canTransition(w.Status, store.StatusCancelled) || w.Status == store.StatusDisputed {
		return nil, &WrongStatusError{Operation: "cancel", Current: w.Status, Allowed: cancellable}
	}
	if err := s.store.TransitionStatus(ctx, wagerID, cancellable, store.StatusCancelled); err != nil {
		return nil, s.conflictStatus(ctx, "cancel", wagerID, err, cancellable...)
	}
	s.refundAll(ctx, w, "wager cancelled")
	s.emit(notify.EventWagerCancelled, w, userID, nil)
	return s.get(ctx, wagerID)
}

// refundAll releases every active hold booked against the wager. Missing
// holds are normal here: an open wager has only the creator's.
func (s *Service) refundAll(ctx context.Context, w *store.Wager, memo string) {
	users := []string{w.CreatorID}
	if w.OpponentID != "" {
		users = append(users, w.OpponentID)
	}
	if w.Kind == store.KindOpenRoster {
		parts, err := s.store.ListParticipants(ctx, w.ID)
		if err != nil {
			log.Error().Err(err).Str("wager_id", w.ID).Msg("participant refund listing failed")
		}
		users = users[:1]
		for _, p := range parts {
			users = append(users, p.UserID)
		}
	}
	seen := map[string]bool{}
	for _, userID := range users {
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		err := s.ledger.Release(ctx, userID, w.Stake, w.ID, memo)
		if err != nil && !errors.Is(err, store.ErrInvalidHoldState) {
			log.Error().Err(err).Str("wager_id", w.ID).Str("user_id", userID).Msg("refund failed")
		}
	}
	if err := s.escrow.Refund(ctx, w.ID); err != nil && !errors.Is(err, escrow.ErrNotFound) {
		var stateErr *escrow.InvalidStateError
		if !errors.As(err, &stateErr) {
			log.Warn().Err(err).Str("wager_id", w.ID).Msg("escrow refund failed")
		}
	}
}

func (s *Service) sideOf(ctx context.Context, w *store.Wager, userID string) (store.Side, error) {
	switch userID {
	case "":
		return "", ErrNotParticipant
	case w.CreatorID:
		return store.SideCreator, nil
	case w.OpponentID:
		return store.SideOpponent, nil
	}
	if w.Kind == store.KindOpenRoster {
		parts, err := s.store.ListParticipants(ctx, w.ID)
		if err != nil {
			return "", err
		}
		for _, p := range parts {
			if p.UserID == userID {
				return p.Side, nil
			}
		}
	}
	return "", ErrNotParticipant
}

func (s *Service) get(ctx context.Context, wagerID string) (*store.Wager, error) {
	w, err := s.store.GetWager(ctx, wagerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return w, err
}

// conflictStatus turns a lost conditional update into a WrongStatusError
// naming the state the wager actually reached.
func (s *Service) conflictStatus(ctx context.Context, op, wagerID string, err error, allowed ...store.WagerStatus) error {
	if !errors.Is(err, store.ErrConflict) {
		return err
	}
	w, getErr := s.get(ctx, wagerID)
	if getErr != nil {
		return getErr
	}
	return &WrongStatusError{Operation: op, Current: w.Status, Allowed: allowed}
}

func (s *Service) recordRep(ctx context.Context, userID, kind, wagerID, description string) {
	if err := s.rep.Record(ctx, userID, kind, wagerID, description); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("kind", kind).Msg("reputation record failed")
	}
}

func (s *Service) emit(event string, w *store.Wager, actorID string, detail map[string]string) {
	if s.notifier == nil {
		return
	}
	users := []string{w.CreatorID}
	if w.OpponentID != "" {
		users = append(users, w.OpponentID)
	}
	if detail == nil {
		detail = map[string]string{}
	}
	detail["actor_id"] = actorID
	s.notifier.Emit(notify.Intent{Event: event, WagerID: w.ID, UserIDs: users, Detail: detail})
}

// Reads.

func (s *Service) Get(ctx context.Context, wagerID string) (*store.Wager, error) {
	return s.get(ctx, wagerID)
}

func (s *Service) ListOpen(ctx context.Context, game string, limit, offset int) ([]store.Wager, error) {
	return s.store.ListOpenWagers(ctx, game, limit, offset)
}

func (s *Service) ListMine(ctx context.Context, userID string, limit, offset int) ([]store.Wager, error) {
	return s.store.ListUserWagers(ctx, userID, limit, offset)
}

func (s *Service) Stats(ctx context.Context, userID, game string) (*store.UserStats, error) {
	return s.store.GetUserStats(ctx, userID, game)
}

func (s *Service) Leaderboard(ctx context.Context, game string, limit int) ([]store.LeaderboardRow, error) {
	return s.store.ListLeaderboard(ctx, game, limit)
}
