// Package checkpoint persists a state machine's last recoverable state so a
// restarted process can resume where it left off.
//
// The engine only ever needs one key: the last recoverable state id. Store
// implementations cover the common deployment shapes:
//
//   - Memory: process-lifetime only, for tests and recovery-disabled setups
//   - File: atomic JSON file on local disk, for single-host controllers
//   - Redis: shared key with optional TTL, for fleet setups
//
// Wire a store into the engine with fsm.WithCheckpoint:
//
//	store := checkpoint.NewFile("/var/lib/cell/last_state.json")
//	m := fsm.MustNew(
//	    fsm.WithGroup("Running", "picking", "placing"),
//	    fsm.WithCheckpoint(store),
//	)
//	res, err := m.Start(ctx) // resumes via recover__<state> when possible
package checkpoint
