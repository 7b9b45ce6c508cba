package slot

import "trvd/pkg/types"

// State represents the lifecycle state of the slot.
type State string

const (
	StateEmpty     State = "empty"
	StateLoading   State = "loading"
	StateResident  State = "resident"
	StateUnloading State = "unloading"
	// StateBroken is entered when a reclaim barrier times out. The slot can
	// no longer be trusted; every subsequent operation fails until restart.
	StateBroken State = "broken"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State         State
	Role          types.Role
	LoadsTotal    uint64
	ReclaimsTotal uint64
	LastError     string
}
