package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wager lifecycle states. Transitions are driven through conditional updates
// guarded by the expected source state; see internal/wager for the table.
type WagerStatus string

const (
	StatusOpen                WagerStatus = "open"
	StatusAccepted            WagerStatus = "accepted"
	StatusPendingReady        WagerStatus = "pending_ready"
	StatusInProgress          WagerStatus = "in_progress"
	StatusPendingVerification WagerStatus = "pending_verification"
	StatusPendingConfirmation WagerStatus = "pending_confirmation"
	StatusDisputed            WagerStatus = "disputed"
	StatusCompleted           WagerStatus = "completed"
	StatusCancelled           WagerStatus = "cancelled"
)

type WagerKind string

const (
	KindSolo       WagerKind = "solo"
	KindTeam       WagerKind = "team"
	KindOpenRoster WagerKind = "open_roster"
)

type VerificationKind string

const (
	VerifyRanked VerificationKind = "ranked"
	VerifyCustom VerificationKind = "custom"
)

type Side string

const (
	SideCreator  Side = "creator"
	SideOpponent Side = "opponent"
)

type Wallet struct {
	UserID          string
	DepositAddress  string
	DerivationIndex int
	Available       decimal.Decimal
	Held            decimal.Decimal
	TotalDeposited  decimal.Decimal
	TotalWithdrawn  decimal.Decimal
	TotalWon        decimal.Decimal
	TotalLost       decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type WalletEntry struct {
	ID          string
	UserID      string
	Type        string
	Amount      decimal.Decimal
	RefType     string
	RefID       string
	Description string
	CreatedAt   time.Time
}

type HoldStatus string

const (
	HoldActive   HoldStatus = "held"
	HoldReleased HoldStatus = "released"
	HoldSettled  HoldStatus = "settled"
)

type Hold struct {
	ID        string
	UserID    string
	WagerID   string
	Amount    decimal.Decimal
	Status    HoldStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalConfirmed WithdrawalStatus = "confirmed"
	WithdrawalCancelled WithdrawalStatus = "cancelled"
)

type Withdrawal struct {
	ID          string
	UserID      string
	Amount      decimal.Decimal
	Destination string
	Status      WithdrawalStatus
	TxHash      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Wager struct {
	ID              string
	CreatorID       string
	OpponentID      string // empty until matched
	Game            string
	Stake           decimal.Decimal
	Status          WagerStatus
	Kind            WagerKind
	TeamSize        int
	TeamID          string
	Verification    VerificationKind
	WinnerID        string
	SubmittedBy     string
	MatchRef        string
	ProofURL        string
	CreatorReady    bool
	OpponentReady   bool
	ReadyDeadline   *time.Time
	ConfirmDeadline *time.Time
	SubmittedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (w *Wager) IsParticipant(userID string) bool {
	return userID != "" && (w.CreatorID == userID || w.OpponentID == userID)
}

func (w *Wager) Opponent(userID string) string {
	switch userID {
	case w.CreatorID:
		return w.OpponentID
	case w.OpponentID:
		return w.CreatorID
	}
	return ""
}

func (w *Wager) Terminal() bool {
	return w.Status == StatusCompleted || w.Status == StatusCancelled
}

type Participant struct {
	WagerID   string
	UserID    string
	Side      Side
	CreatedAt time.Time
}

type EscrowStatus string

const (
	EscrowAwaitingDeposits EscrowStatus = "awaiting_deposits"
	EscrowFunded           EscrowStatus = "funded"
	EscrowLocked           EscrowStatus = "locked"
	EscrowReleased         EscrowStatus = "released"
	EscrowRefunded         EscrowStatus = "refunded"
)

type EscrowAccount struct {
	WagerID           string
	Address           string
	Status            EscrowStatus
	CreatorDeposited  bool
	OpponentDeposited bool
	CreatorProof      string
	OpponentProof     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type EscrowTransaction struct {
	ID        string
	WagerID   string
	UserID    string
	Type      string
	Amount    decimal.Decimal
	TxHash    string
	Status    string
	CreatedAt time.Time
}

type DisputeStatus string

const (
	DisputePending  DisputeStatus = "pending"
	DisputeResolved DisputeStatus = "resolved"
)

type Dispute struct {
	ID              string
	WagerID         string
	FilerID         string
	Reason          string
	Evidence        string
	CounterEvidence string
	Status          DisputeStatus
	WinnerID        string
	ResolvedBy      string
	Resolution      string
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}

type DisputeVote struct {
	DisputeID string
	VoterID   string
	Side      Side
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ReputationEvent struct {
	ID          string
	UserID      string
	Kind        string
	Points      int
	WagerID     string
	Description string
	CreatedAt   time.Time
}

type UserStats struct {
	UserID        string
	TotalMatches  int
	Wins          int
	Losses        int
	TotalWagered  decimal.Decimal
	TotalEarnings decimal.Decimal
}

type LeaderboardRow struct {
	UserID       string
	TotalMatches int
	Wins         int
	Losses       int
	TotalWagered decimal.Decimal
}
