package types

// InstanceState is the power state of the remote compute instance as reported by the provider.
type InstanceState string

const (
	InstanceStopped      InstanceState = "stopped"
	InstancePending      InstanceState = "pending"
	InstanceRunning      InstanceState = "running"
	InstanceStopping     InstanceState = "stopping"
	InstanceShuttingDown InstanceState = "shutting-down"
	InstanceTerminated   InstanceState = "terminated"
	InstanceUnknown      InstanceState = "unknown"
)

// Terminal reports whether the instance can no longer be started.
func (s InstanceState) Terminal() bool {
	return s == InstanceTerminated || s == InstanceShuttingDown
}
