// Package manager owns the session registry and launches model servers on the
// remote instance. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig, collaborator interfaces and package defaults.
//   - types.go: Session and StartRequest.
//   - errors.go: error types and helpers (IsModelNotFound, IsSessionNotFound, IsLaunchError).
//   - helpers.go: model resolution, session ids, the launch command line.
//   - start.go: StartSession (allocation, reservation, recheck, spawn, register).
//   - stop.go: StopSession and StopAll.
//   - relay.go: per-session log relay supervised by a conc.WaitGroup.
//   - status_report.go: Status with lazy pruning of dead sessions.
//   - events.go, eventpub_memory.go, metrics.go: observability hooks.
//
// The registry map is guarded by one mutex held only around map mutation;
// instance, ssh and prompt calls always happen outside the lock.
package manager
