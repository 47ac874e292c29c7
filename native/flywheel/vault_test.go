package flywheel

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestSetVaultScheduleRejectsUnreleasable(t *testing.T) {
	f := newFlywheelFixture()
	err := f.engine.SetVaultSchedule(addr(0xEE), uint256.NewInt(0), uint256.NewInt(5), 0)
	if !errors.Is(err, ErrInvalidVaultSchedule) {
		t.Fatalf("expected ErrInvalidVaultSchedule, got %v", err)
	}
}

func TestReleaseToVaultMinBatchDefers(t *testing.T) {
	f := newFlywheelFixture()
	vault := addr(0xEE)
	sink := &mockVault{}
	f.engine.SetVault(sink)
	f.fundTreasury(1_000)
	if err := f.engine.SetVaultSchedule(vault, uint256.NewInt(10), uint256.NewInt(100), 0); err != nil {
		t.Fatalf("set vault schedule: %v", err)
	}

	// 5 blocks at rate 10 is below the 100 minimum batch.
	f.block = 5
	if err := f.engine.ReleaseToVault(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := f.token.BalanceOf(vault); !got.IsZero() {
		t.Fatalf("a sub-minimum batch must defer, got %s", got.Dec())
	}
	if f.state.vault.LastReleaseBlock != 0 {
		t.Fatalf("a deferred batch must not advance the release block, got %d", f.state.vault.LastReleaseBlock)
	}

	// The deferred stream is still owed once the batch clears the minimum.
	f.block = 10
	if err := f.engine.ReleaseToVault(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := f.token.BalanceOf(vault); got.Uint64() != 100 {
		t.Fatalf("expected a 100 release, got %s", got.Dec())
	}
	if f.state.vault.LastReleaseBlock != 10 {
		t.Fatalf("expected the release block to advance to 10, got %d", f.state.vault.LastReleaseBlock)
	}
	if sink.notifications != 1 {
		t.Fatalf("expected one vault notification, got %d", sink.notifications)
	}
}

func TestReleaseToVaultCappedByTreasury(t *testing.T) {
	f := newFlywheelFixture()
	vault := addr(0xEE)
	f.fundTreasury(30)
	if err := f.engine.SetVaultSchedule(vault, uint256.NewInt(10), nil, 0); err != nil {
		t.Fatalf("set vault schedule: %v", err)
	}

	f.block = 10
	if err := f.engine.ReleaseToVault(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := f.token.BalanceOf(vault); got.Uint64() != 30 {
		t.Fatalf("expected the release to be capped at the treasury's 30, got %s", got.Dec())
	}
	if got := f.token.BalanceOf(treasuryAddr); !got.IsZero() {
		t.Fatalf("expected the treasury to be drained, got %s", got.Dec())
	}
}

func TestReleaseToVaultNoopBeforeStartOrWhenEmpty(t *testing.T) {
	f := newFlywheelFixture()
	vault := addr(0xEE)
	if err := f.engine.SetVaultSchedule(vault, uint256.NewInt(10), nil, 100); err != nil {
		t.Fatalf("set vault schedule: %v", err)
	}

	// Before the start block nothing has accumulated.
	f.block = 50
	if err := f.engine.ReleaseToVault(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := f.token.BalanceOf(vault); !got.IsZero() {
		t.Fatalf("nothing may release before the start block, got %s", got.Dec())
	}

	// Past the start block with an empty treasury the stream stays owed.
	f.block = 150
	if err := f.engine.ReleaseToVault(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if f.state.vault.LastReleaseBlock != 100 {
		t.Fatalf("an unfunded release must not advance the release block, got %d", f.state.vault.LastReleaseBlock)
	}
}
