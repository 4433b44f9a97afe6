package wager

import "github.com/Somebody914/Wager-Bot/internal/store"

// transitions is the full lifecycle graph, keyed by destination. An illegal
// move fails against this table before any conditional update runs, and the
// conditional update itself re-checks under concurrency.
var transitions = map[store.WagerStatus][]store.WagerStatus{
	store.StatusAccepted:            {store.StatusOpen},
	store.StatusPendingReady:        {store.StatusOpen, store.StatusAccepted},
	store.StatusInProgress:          {store.StatusPendingReady},
	store.StatusPendingVerification: {store.StatusInProgress},
	store.StatusPendingConfirmation: {store.StatusInProgress, store.StatusPendingVerification},
	store.StatusDisputed: {
		store.StatusAccepted,
		store.StatusPendingReady,
		store.StatusInProgress,
		store.StatusPendingVerification,
		store.StatusPendingConfirmation,
	},
	store.StatusCompleted: {
		store.StatusPendingVerification,
		store.StatusPendingConfirmation,
		store.StatusDisputed,
	},
	store.StatusCancelled: {
		store.StatusOpen,
		store.StatusAccepted,
		store.StatusPendingReady,
		store.StatusDisputed,
	},
}

// disputableStates are where a participant may file a dispute.
var disputableStates = []store.WagerStatus{
	store.StatusAccepted,
	store.StatusPendingReady,
	store.StatusInProgress,
	store.StatusPendingVerification,
	store.StatusPendingConfirmation,
}

func canTransition(from, to store.WagerStatus) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}
