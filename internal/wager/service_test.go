package wager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Somebody914/Wager-Bot/internal/config"
	"github.com/Somebody914/Wager-Bot/internal/dispute"
	"github.com/Somebody914/Wager-Bot/internal/escrow"
	"github.com/Somebody914/Wager-Bot/internal/ledger"
	"github.com/Somebody914/Wager-Bot/internal/reputation"
	"github.com/Somebody914/Wager-Bot/internal/store"
	"github.com/Somebody914/Wager-Bot/internal/testutil"
	"github.com/Somebody914/Wager-Bot/internal/treasury"
	"github.com/Somebody914/Wager-Bot/internal/verify"
)

func testConfig() config.WagerConfig {
	return config.WagerConfig{
		PlatformFee:        "0.03",
		MinStake:           "0.001",
		ReadyTimeoutMins:   15,
		ConfirmTimeoutMins: 30,
		QuickConfirmMins:   5,
		CreateScore:        50,
		ParticipateScore:   25,
	}
}

type harness struct {
	svc    *Service
	store  *store.Store
	ledger *ledger.Ledger
	rep    *reputation.Service
}

func newHarness(t *testing.T) (*harness, context.Context, func()) {
	t.Helper()
	st, cleanup := testutil.OpenTestStore(t)
	tr := treasury.NewStatic("test")
	led := ledger.New(st, tr)
	rep := reputation.NewService(st, 50, 25)
	disp := dispute.NewService(st)
	esc := escrow.NewService(st, tr)
	svc, err := NewService(st, led, rep, disp, esc, nil, nil, testConfig())
	if err != nil {
		cleanup()
		t.Fatalf("new service: %v", err)
	}
	return &harness{svc: svc, store: st, ledger: led, rep: rep}, context.Background(), cleanup
}

func (h *harness) fund(t *testing.T, ctx context.Context, userID, amount string) {
	t.Helper()
	credited, err := h.ledger.Deposit(ctx, userID, d(t, amount), "seed:"+userID+":"+store.NewID())
	if err != nil || !credited {
		t.Fatalf("fund %s: credited=%v err=%v", userID, credited, err)
	}
}

func (h *harness) available(t *testing.T, ctx context.Context, userID string) decimal.Decimal {
	t.Helper()
	b, err := h.ledger.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("balance %s: %v", userID, err)
	}
	return b.Available
}

func (h *harness) score(t *testing.T, ctx context.Context, userID string) int {
	t.Helper()
	score, err := h.rep.Score(ctx, userID)
	if err != nil {
		t.Fatalf("score %s: %v", userID, err)
	}
	return score
}

// openToInProgress drives a fresh solo wager through create, accept and both
// ready confirmations.
func (h *harness) openToInProgress(t *testing.T, ctx context.Context, creator, opponent string) *store.Wager {
	t.Helper()
	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: creator, Game: "valorant", Stake: d(t, "0.1"), Kind: Solo(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.Accept(ctx, w.ID, opponent); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := h.svc.SetReady(ctx, w.ID, creator); err != nil {
		t.Fatalf("creator ready: %v", err)
	}
	w, err = h.svc.SetReady(ctx, w.ID, opponent)
	if err != nil {
		t.Fatalf("opponent ready: %v", err)
	}
	if w.Status != store.StatusInProgress {
		t.Fatalf("status after ready = %s", w.Status)
	}
	return w
}

func TestCreateValidation(t *testing.T) {
	svc, err := NewService(nil, nil, nil, nil, nil, nil, nil, testConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"missing creator", CreateInput{Game: "chess", Stake: d(t, "0.1"), Kind: Solo()}, ErrInvalidRequest},
		{"missing game", CreateInput{CreatorID: "u1", Stake: d(t, "0.1"), Kind: Solo()}, ErrInvalidRequest},
		{"stake too small", CreateInput{CreatorID: "u1", Game: "chess", Stake: d(t, "0.0001"), Kind: Solo()}, ErrInvalidRequest},
		{"self challenge", CreateInput{CreatorID: "u1", OpponentID: "u1", Game: "chess", Stake: d(t, "0.1"), Kind: Solo()}, ErrOwnWager},
		{"team without id", CreateInput{CreatorID: "u1", Game: "chess", Stake: d(t, "0.1"), Kind: Team("", 3)}, ErrInvalidRequest},
		{"roster with opponent", CreateInput{CreatorID: "u1", OpponentID: "u2", Game: "chess", Stake: d(t, "0.1"), Kind: OpenRoster(2)}, ErrInvalidRequest},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestLifecycleConfirmSettles(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")

	w := h.openToInProgress(t, ctx, "creator", "opponent")

	w, err := h.svc.Submit(ctx, SubmitInput{
		WagerID: w.ID, UserID: "creator", ProofURL: "https://imgur.com/proof",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if w.Status != store.StatusPendingConfirmation {
		t.Fatalf("status after submit = %s", w.Status)
	}

	if _, err := h.svc.Confirm(ctx, w.ID, "creator"); !errors.Is(err, ErrSelfConfirm) {
		t.Fatalf("self confirm: want ErrSelfConfirm, got %v", err)
	}

	w, err = h.svc.Confirm(ctx, w.ID, "opponent")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if w.Status != store.StatusCompleted || w.WinnerID != "creator" {
		t.Fatalf("final: status=%s winner=%s", w.Status, w.WinnerID)
	}

	// pot 0.2, fee 0.006: winner nets 0.094, loser is out their stake.
	if got := h.available(t, ctx, "creator"); !got.Equal(d(t, "1.094")) {
		t.Fatalf("winner available = %s", got)
	}
	if got := h.available(t, ctx, "opponent"); !got.Equal(d(t, "0.9")) {
		t.Fatalf("loser available = %s", got)
	}

	// Both sides get the completion credit; the quick confirmer one more.
	if got := h.score(t, ctx, "creator"); got != 52 {
		t.Fatalf("creator score = %d", got)
	}
	if got := h.score(t, ctx, "opponent"); got != 53 {
		t.Fatalf("opponent score = %d", got)
	}
}

func TestAcceptRules(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "rando", "1.0")

	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "creator", Game: "valorant", Stake: d(t, "0.1"), Kind: Solo(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.Accept(ctx, w.ID, "creator"); !errors.Is(err, ErrOwnWager) {
		t.Fatalf("own accept: want ErrOwnWager, got %v", err)
	}
	if _, err := h.svc.Accept(ctx, w.ID, "rando"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	h.fund(t, ctx, "late", "1.0")
	if _, err := h.svc.Accept(ctx, w.ID, "late"); err == nil {
		t.Fatalf("late accept should fail")
	} else {
		var wrong *WrongStatusError
		if !errors.As(err, &wrong) {
			t.Fatalf("late accept: want WrongStatusError, got %v", err)
		}
	}
	// The loser of the race keeps their money.
	if got := h.available(t, ctx, "late"); !got.Equal(d(t, "1.0")) {
		t.Fatalf("late available = %s", got)
	}
}

func TestDirectChallengeAccept(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "named", "1.0")
	h.fund(t, ctx, "other", "1.0")

	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "creator", OpponentID: "named", Game: "valorant", Stake: d(t, "0.1"), Kind: Solo(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.Status != store.StatusAccepted {
		t.Fatalf("direct challenge status = %s", w.Status)
	}
	if _, err := h.svc.Accept(ctx, w.ID, "other"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("stranger accept: want ErrNotParticipant, got %v", err)
	}
	w, err = h.svc.Accept(ctx, w.ID, "named")
	if err != nil {
		t.Fatalf("named accept: %v", err)
	}
	if w.Status != store.StatusPendingReady {
		t.Fatalf("after named accept status = %s", w.Status)
	}
}

func TestCancelRefundsBothSides(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")

	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "creator", Game: "valorant", Stake: d(t, "0.1"), Kind: Solo(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.Accept(ctx, w.ID, "opponent"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := h.svc.Cancel(ctx, w.ID, "opponent"); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("opponent cancel: want ErrNotCreator, got %v", err)
	}
	w, err = h.svc.Cancel(ctx, w.ID, "creator")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if w.Status != store.StatusCancelled {
		t.Fatalf("status = %s", w.Status)
	}
	for _, u := range []string{"creator", "opponent"} {
		if got := h.available(t, ctx, u); !got.Equal(d(t, "1.0")) {
			t.Fatalf("%s available = %s", u, got)
		}
	}
}

func TestCancelBlockedInProgress(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")
	w := h.openToInProgress(t, ctx, "creator", "opponent")

	var wrong *WrongStatusError
	if _, err := h.svc.Cancel(ctx, w.ID, "creator"); !errors.As(err, &wrong) {
		t.Fatalf("in-progress cancel: want WrongStatusError, got %v", err)
	}
}

func TestSubmitRequiresEvidence(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")
	w := h.openToInProgress(t, ctx, "creator", "opponent")

	if _, err := h.svc.Submit(ctx, SubmitInput{WagerID: w.ID, UserID: "creator"}); !errors.Is(err, ErrProofRequired) {
		t.Fatalf("no proof: want ErrProofRequired, got %v", err)
	}
	_, err := h.svc.Submit(ctx, SubmitInput{
		WagerID: w.ID, UserID: "creator", ProofURL: "https://evil.example.com/x",
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("bad host: want validation error, got %v", err)
	}
	if _, err := h.svc.Submit(ctx, SubmitInput{
		WagerID: w.ID, UserID: "stranger", ProofURL: "https://imgur.com/x",
	}); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("stranger submit: want ErrNotParticipant, got %v", err)
	}
}

func TestDisputeResolveForOpponent(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")
	w := h.openToInProgress(t, ctx, "creator", "opponent")

	if _, err := h.svc.Submit(ctx, SubmitInput{
		WagerID: w.ID, UserID: "creator", ProofURL: "https://imgur.com/proof",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	d1, err := h.svc.Dispute(ctx, w.ID, "opponent", "that screenshot is doctored", "https://imgur.com/counter")
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if d1.Status != store.DisputePending {
		t.Fatalf("dispute status = %s", d1.Status)
	}
	w, err = h.svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.Status != store.StatusDisputed {
		t.Fatalf("wager status = %s", w.Status)
	}

	w, err = h.svc.ResolveDispute(ctx, ResolveInput{
		WagerID: w.ID, ModeratorID: "mod-1", Verdict: VerdictOpponent, Resolution: "proof was fabricated",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.Status != store.StatusCompleted || w.WinnerID != "opponent" {
		t.Fatalf("resolved: status=%s winner=%s", w.Status, w.WinnerID)
	}

	if got := h.available(t, ctx, "opponent"); !got.Equal(d(t, "1.094")) {
		t.Fatalf("winner available = %s", got)
	}
	if got := h.available(t, ctx, "creator"); !got.Equal(d(t, "0.9")) {
		t.Fatalf("loser available = %s", got)
	}

	// Creator claimed a win and lost the dispute over it:
	// +2 complete, -15 dispute lost, -25 false claim.
	if got := h.score(t, ctx, "creator"); got != 12 {
		t.Fatalf("creator score = %d", got)
	}
	// Opponent: +2 complete, +5 dispute won.
	if got := h.score(t, ctx, "opponent"); got != 57 {
		t.Fatalf("opponent score = %d", got)
	}
}

func TestDisputeResolveCancelRefunds(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")
	w := h.openToInProgress(t, ctx, "creator", "opponent")

	if _, err := h.svc.Dispute(ctx, w.ID, "creator", "opponent is cheating", ""); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	w, err := h.svc.ResolveDispute(ctx, ResolveInput{
		WagerID: w.ID, ModeratorID: "mod-1", Verdict: VerdictCancel, Resolution: "no way to tell",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.Status != store.StatusCancelled {
		t.Fatalf("status = %s", w.Status)
	}
	for _, u := range []string{"creator", "opponent"} {
		if got := h.available(t, ctx, u); !got.Equal(d(t, "1.0")) {
			t.Fatalf("%s available = %s", u, got)
		}
	}
}

func TestReputationGateBlocksCreate(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "flaky", "1.0")
	if err := h.rep.Record(ctx, "flaky", reputation.NoShow, "", "missed a ready check"); err != nil {
		t.Fatalf("record: %v", err)
	}

	_, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "flaky", Game: "valorant", Stake: d(t, "0.1"), Kind: Solo(),
	})
	var insufficient *reputation.InsufficientError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientError, got %v", err)
	}
	if insufficient.Score != 40 || insufficient.Required != 50 {
		t.Fatalf("gate numbers: %+v", insufficient)
	}
	// The stake never left the wallet.
	if got := h.available(t, ctx, "flaky"); !got.Equal(d(t, "1.0")) {
		t.Fatalf("available = %s", got)
	}
}

func TestOpenRosterFillsAndStartsReadyCheck(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	users := []string{"creator", "c2", "o1", "o2"}
	for _, u := range users {
		h.fund(t, ctx, u, "1.0")
	}

	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "creator", Game: "rocket-league", Stake: d(t, "0.1"), Kind: OpenRoster(2),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.JoinOpenRoster(ctx, w.ID, "c2", store.SideCreator); err != nil {
		t.Fatalf("join c2: %v", err)
	}
	if _, err := h.svc.JoinOpenRoster(ctx, w.ID, "c2", store.SideCreator); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("rejoin: want ErrAlreadyJoined, got %v", err)
	}
	if _, err := h.svc.JoinOpenRoster(ctx, w.ID, "o1", store.SideOpponent); err != nil {
		t.Fatalf("join o1: %v", err)
	}
	w, err = h.svc.JoinOpenRoster(ctx, w.ID, "o2", store.SideOpponent)
	if err != nil {
		t.Fatalf("join o2: %v", err)
	}
	if w.Status != store.StatusPendingReady {
		t.Fatalf("status after roster full = %s", w.Status)
	}
	// Every seat put up a stake.
	for _, u := range users {
		if got := h.available(t, ctx, u); !got.Equal(d(t, "0.9")) {
			t.Fatalf("%s available = %s", u, got)
		}
	}
}

func TestSweepReadyCheckExpiry(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")

	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "creator", Game: "valorant", Stake: d(t, "0.1"), Kind: Solo(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.Accept(ctx, w.ID, "opponent"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	h.svc.SetClock(func() time.Time { return time.Now().UTC().Add(20 * time.Minute) })
	if err := h.svc.SweepExpired(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	w, err = h.svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.Status != store.StatusCancelled {
		t.Fatalf("status after sweep = %s", w.Status)
	}
	for _, u := range []string{"creator", "opponent"} {
		if got := h.available(t, ctx, u); !got.Equal(d(t, "1.0")) {
			t.Fatalf("%s available = %s", u, got)
		}
		// Neither side answered the ready check.
		if got := h.score(t, ctx, u); got != 40 {
			t.Fatalf("%s score = %d", u, got)
		}
	}
}

func TestSweepConfirmationExpiry(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")
	w := h.openToInProgress(t, ctx, "creator", "opponent")

	if _, err := h.svc.Submit(ctx, SubmitInput{
		WagerID: w.ID, UserID: "creator", ProofURL: "https://imgur.com/proof",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	h.svc.SetClock(func() time.Time { return time.Now().UTC().Add(time.Hour) })
	if err := h.svc.SweepExpired(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	w, err := h.svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.Status != store.StatusCompleted || w.WinnerID != "creator" {
		t.Fatalf("after sweep: status=%s winner=%s", w.Status, w.WinnerID)
	}
	if got := h.available(t, ctx, "creator"); !got.Equal(d(t, "1.094")) {
		t.Fatalf("winner available = %s", got)
	}
}

// fakeOracle answers every lookup with a fixed result or error.
type fakeOracle struct {
	res *verify.Result
	err error
}

func (f *fakeOracle) VerifyMatch(ctx context.Context, game, matchRef string) (*verify.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

// rosterToInProgress seats two users per side on a fresh open-roster wager
// and runs the ready check.
func (h *harness) rosterToInProgress(t *testing.T, ctx context.Context) *store.Wager {
	t.Helper()
	for _, u := range []string{"creator", "c2", "o1", "o2"} {
		h.fund(t, ctx, u, "1.0")
	}
	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "creator", Game: "rocket-league", Stake: d(t, "0.1"), Kind: OpenRoster(2),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for u, side := range map[string]store.Side{
		"c2": store.SideCreator, "o1": store.SideOpponent, "o2": store.SideOpponent,
	} {
		if _, err := h.svc.JoinOpenRoster(ctx, w.ID, u, side); err != nil {
			t.Fatalf("join %s: %v", u, err)
		}
	}
	if _, err := h.svc.SetReady(ctx, w.ID, "creator"); err != nil {
		t.Fatalf("creator side ready: %v", err)
	}
	w, err = h.svc.SetReady(ctx, w.ID, "o1")
	if err != nil {
		t.Fatalf("opponent side ready: %v", err)
	}
	if w.Status != store.StatusInProgress {
		t.Fatalf("status after ready = %s", w.Status)
	}
	return w
}

func TestOpenRosterConfirmSettlesAllSeats(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	w := h.rosterToInProgress(t, ctx)

	if _, err := h.svc.Submit(ctx, SubmitInput{
		WagerID: w.ID, UserID: "creator", ProofURL: "https://imgur.com/proof",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// A teammate of the submitter cannot confirm their own side's win.
	if _, err := h.svc.Confirm(ctx, w.ID, "c2"); !errors.Is(err, ErrSelfConfirm) {
		t.Fatalf("teammate confirm: want ErrSelfConfirm, got %v", err)
	}
	w, err := h.svc.Confirm(ctx, w.ID, "o2")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if w.Status != store.StatusCompleted || w.WinnerID != "creator" {
		t.Fatalf("final: status=%s winner=%s", w.Status, w.WinnerID)
	}

	// Every winning seat is paid from its matched pair's pot; every losing
	// seat forfeits its stake.
	for _, u := range []string{"creator", "c2"} {
		if got := h.available(t, ctx, u); !got.Equal(d(t, "1.094")) {
			t.Fatalf("%s available = %s", u, got)
		}
	}
	for _, u := range []string{"o1", "o2"} {
		if got := h.available(t, ctx, u); !got.Equal(d(t, "0.9")) {
			t.Fatalf("%s available = %s", u, got)
		}
	}
	for _, u := range []string{"creator", "c2", "o1"} {
		if got := h.score(t, ctx, u); got != 52 {
			t.Fatalf("%s score = %d", u, got)
		}
	}
	// The quick confirmer gets the extra point.
	if got := h.score(t, ctx, "o2"); got != 53 {
		t.Fatalf("o2 score = %d", got)
	}
}

func TestOpenRosterDisputeVerdictSettlesSide(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	w := h.rosterToInProgress(t, ctx)

	if _, err := h.svc.Submit(ctx, SubmitInput{
		WagerID: w.ID, UserID: "creator", ProofURL: "https://imgur.com/proof",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := h.svc.Dispute(ctx, w.ID, "o1", "that lobby was theirs", ""); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	w, err := h.svc.ResolveDispute(ctx, ResolveInput{
		WagerID: w.ID, ModeratorID: "mod-1", Verdict: VerdictOpponent, Resolution: "replay shows it",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.Status != store.StatusCompleted {
		t.Fatalf("status = %s", w.Status)
	}

	for _, u := range []string{"o1", "o2"} {
		if got := h.available(t, ctx, u); !got.Equal(d(t, "1.094")) {
			t.Fatalf("%s available = %s", u, got)
		}
		// +2 complete, +5 dispute won.
		if got := h.score(t, ctx, u); got != 57 {
			t.Fatalf("%s score = %d", u, got)
		}
	}
	for _, u := range []string{"creator", "c2"} {
		if got := h.available(t, ctx, u); !got.Equal(d(t, "0.9")) {
			t.Fatalf("%s available = %s", u, got)
		}
	}
	// The submitter claimed a win and lost the dispute over it.
	if got := h.score(t, ctx, "creator"); got != 12 {
		t.Fatalf("creator score = %d", got)
	}
	if got := h.score(t, ctx, "c2"); got != 37 {
		t.Fatalf("c2 score = %d", got)
	}
}

func TestOpenRosterReadyExpiryPenalizesAbsentSide(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	users := []string{"creator", "c2", "o1", "o2"}
	for _, u := range users {
		h.fund(t, ctx, u, "1.0")
	}
	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "creator", Game: "rocket-league", Stake: d(t, "0.1"), Kind: OpenRoster(2),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for u, side := range map[string]store.Side{
		"c2": store.SideCreator, "o1": store.SideOpponent, "o2": store.SideOpponent,
	} {
		if _, err := h.svc.JoinOpenRoster(ctx, w.ID, u, side); err != nil {
			t.Fatalf("join %s: %v", u, err)
		}
	}
	if _, err := h.svc.SetReady(ctx, w.ID, "creator"); err != nil {
		t.Fatalf("ready: %v", err)
	}

	h.svc.SetClock(func() time.Time { return time.Now().UTC().Add(20 * time.Minute) })
	if err := h.svc.SweepExpired(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	w, err = h.svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.Status != store.StatusCancelled {
		t.Fatalf("status = %s", w.Status)
	}
	for _, u := range users {
		if got := h.available(t, ctx, u); !got.Equal(d(t, "1.0")) {
			t.Fatalf("%s available = %s", u, got)
		}
	}
	// The side that readied keeps its standing; every seat on the absent
	// side takes the no-show hit.
	for _, u := range []string{"creator", "c2"} {
		if got := h.score(t, ctx, u); got != 50 {
			t.Fatalf("%s score = %d", u, got)
		}
	}
	for _, u := range []string{"o1", "o2"} {
		if got := h.score(t, ctx, u); got != 40 {
			t.Fatalf("%s score = %d", u, got)
		}
	}
}

func TestSweepReadyExpiryPenalizesOnlyAbsentSide(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")

	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "creator", Game: "valorant", Stake: d(t, "0.1"), Kind: Solo(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.Accept(ctx, w.ID, "opponent"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := h.svc.SetReady(ctx, w.ID, "creator"); err != nil {
		t.Fatalf("ready: %v", err)
	}

	h.svc.SetClock(func() time.Time { return time.Now().UTC().Add(20 * time.Minute) })
	if err := h.svc.SweepExpired(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	for _, u := range []string{"creator", "opponent"} {
		if got := h.available(t, ctx, u); !got.Equal(d(t, "1.0")) {
			t.Fatalf("%s available = %s", u, got)
		}
	}
	if got := h.score(t, ctx, "creator"); got != 50 {
		t.Fatalf("creator score = %d", got)
	}
	if got := h.score(t, ctx, "opponent"); got != 40 {
		t.Fatalf("opponent score = %d", got)
	}
}

func TestDisputeVerdictNeedsBothStakes(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")

	// Direct challenge: the named opponent has not staked yet.
	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "creator", OpponentID: "opponent", Game: "valorant", Stake: d(t, "0.1"), Kind: Solo(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.Dispute(ctx, w.ID, "creator", "they ghosted", ""); err != nil {
		t.Fatalf("dispute: %v", err)
	}

	_, err = h.svc.ResolveDispute(ctx, ResolveInput{
		WagerID: w.ID, ModeratorID: "mod-1", Verdict: VerdictCreator, Resolution: "creator wins",
	})
	if !errors.Is(err, store.ErrInvalidHoldState) {
		t.Fatalf("one-sided verdict: want ErrInvalidHoldState, got %v", err)
	}
	// Nothing moved and the dispute is still open for a cancel verdict.
	w, err = h.svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.Status != store.StatusDisputed {
		t.Fatalf("status after failed verdict = %s", w.Status)
	}
	b, err := h.ledger.Balance(ctx, "creator")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !b.Available.Equal(d(t, "0.9")) || !b.Held.Equal(d(t, "0.1")) {
		t.Fatalf("creator: available=%s held=%s", b.Available, b.Held)
	}
	if got := h.available(t, ctx, "opponent"); !got.Equal(d(t, "1.0")) {
		t.Fatalf("opponent available = %s", got)
	}

	w, err = h.svc.ResolveDispute(ctx, ResolveInput{
		WagerID: w.ID, ModeratorID: "mod-1", Verdict: VerdictCancel, Resolution: "no match happened",
	})
	if err != nil {
		t.Fatalf("cancel verdict: %v", err)
	}
	if w.Status != store.StatusCancelled {
		t.Fatalf("status = %s", w.Status)
	}
	if got := h.available(t, ctx, "creator"); !got.Equal(d(t, "1.0")) {
		t.Fatalf("creator available = %s", got)
	}
}

func TestSubmitRejectsClaimOracleContradicts(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()
	h.svc.oracle = &fakeOracle{res: &verify.Result{Verified: true, WinnerID: "opponent", MatchRef: "m-1"}}

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")
	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "creator", Game: "valorant", Stake: d(t, "0.1"), Kind: Solo(),
		Verification: store.VerifyRanked,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.Accept(ctx, w.ID, "opponent"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := h.svc.SetReady(ctx, w.ID, "creator"); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if _, err := h.svc.SetReady(ctx, w.ID, "opponent"); err != nil {
		t.Fatalf("ready: %v", err)
	}

	_, err = h.svc.Submit(ctx, SubmitInput{WagerID: w.ID, UserID: "creator", MatchRef: "m-1"})
	if !errors.Is(err, ErrClaimContradicted) {
		t.Fatalf("want ErrClaimContradicted, got %v", err)
	}
	w, err = h.svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.Status != store.StatusInProgress || w.SubmittedBy != "" {
		t.Fatalf("after rejected claim: status=%s submitted_by=%q", w.Status, w.SubmittedBy)
	}

	// The actual winner's claim goes straight through.
	if _, err := h.svc.Submit(ctx, SubmitInput{WagerID: w.ID, UserID: "opponent", MatchRef: "m-1"}); err != nil {
		t.Fatalf("winner submit: %v", err)
	}
}

func TestSubmitParksClaimWhileOracleDown(t *testing.T) {
	h, ctx, cleanup := newHarness(t)
	defer cleanup()
	oracle := &fakeOracle{err: verify.ErrUnavailable}
	h.svc.oracle = oracle

	h.fund(t, ctx, "creator", "1.0")
	h.fund(t, ctx, "opponent", "1.0")
	w, err := h.svc.Create(ctx, CreateInput{
		CreatorID: "creator", Game: "valorant", Stake: d(t, "0.1"), Kind: Solo(),
		Verification: store.VerifyRanked,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.Accept(ctx, w.ID, "opponent"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := h.svc.SetReady(ctx, w.ID, "creator"); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if _, err := h.svc.SetReady(ctx, w.ID, "opponent"); err != nil {
		t.Fatalf("ready: %v", err)
	}

	w, err = h.svc.Submit(ctx, SubmitInput{WagerID: w.ID, UserID: "creator", MatchRef: "m-1"})
	if err != nil {
		t.Fatalf("submit while oracle down: %v", err)
	}
	if w.Status != store.StatusPendingVerification || w.SubmittedBy != "creator" {
		t.Fatalf("parked claim: status=%s submitted_by=%s", w.Status, w.SubmittedBy)
	}
	if w.ConfirmDeadline != nil {
		t.Fatalf("confirmation window should not start while parked")
	}

	// Once the oracle answers, resubmitting moves the claim along.
	oracle.err = nil
	oracle.res = &verify.Result{Verified: true, WinnerID: "creator", MatchRef: "m-1"}
	w, err = h.svc.Submit(ctx, SubmitInput{WagerID: w.ID, UserID: "creator", MatchRef: "m-1"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if w.Status != store.StatusPendingConfirmation {
		t.Fatalf("status after resubmit = %s", w.Status)
	}
	if _, err := h.svc.Confirm(ctx, w.ID, "opponent"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := h.available(t, ctx, "creator"); !got.Equal(d(t, "1.094")) {
		t.Fatalf("winner available = %s", got)
	}
}
