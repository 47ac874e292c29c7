package common

import "errors"

// ErrActionPaused is returned when a guarded protocol action is paused.
var ErrActionPaused = errors.New("action paused")

// Protocol actions that can be paused independently of one another.
const (
	ActionMint        = "mint"
	ActionRedeem      = "redeem"
	ActionBorrow      = "borrow"
	ActionRepay       = "repay"
	ActionSeize       = "seize"
	ActionTransfer    = "transfer"
	ActionStableMint  = "stablemint"
	ActionStableRepay = "stablerepay"
	ActionClaim       = "claim"
)

// PauseView reports whether a protocol action is currently paused.
type PauseView interface {
	IsPaused(action string) bool
}

// Guard rejects the action when the pause view marks it as halted. A nil view
// or empty action never blocks.
func Guard(p PauseView, action string) error {
	if p == nil || action == "" {
		return nil
	}
	if p.IsPaused(action) {
		return ErrActionPaused
	}
	return nil
}

// StaticPauses is a fixed PauseView backed by a set of paused action names.
type StaticPauses map[string]bool

// IsPaused implements PauseView.
func (s StaticPauses) IsPaused(action string) bool {
	return s[action]
}
