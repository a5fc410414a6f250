package cleanup

import "context"

// RuntimeKnobs are the client-global (not per-table) settings that can
// force ProtectionGate's short-circuit rules off in strict installations.
// They are passed through an explicit context value — never looked up
// ambiently — so tests and callers can vary them per run.
type RuntimeKnobs struct {
	// AllowMetadataCleanupWhenAllProtocolsSupported, when false, forces
	// ProtectionGate rule 6 (the checksum/protocol-support path) to deny.
	AllowMetadataCleanupWhenAllProtocolsSupported bool

	// AllowMetadataCleanupCheckpointExistenceCheckDisabled, when true,
	// forces ProtectionGate rule 5 (the boundary-checkpoint shortcut) to
	// deny.
	AllowMetadataCleanupCheckpointExistenceCheckDisabled bool
}

// DefaultRuntimeKnobs returns the permissive defaults: both shortcuts
// available.
func DefaultRuntimeKnobs() RuntimeKnobs {
	return RuntimeKnobs{
		AllowMetadataCleanupWhenAllProtocolsSupported:        true,
		AllowMetadataCleanupCheckpointExistenceCheckDisabled: false,
	}
}

type knobsContextKey struct{}

// WithRuntimeKnobs attaches k to ctx.
func WithRuntimeKnobs(ctx context.Context, k RuntimeKnobs) context.Context {
	return context.WithValue(ctx, knobsContextKey{}, k)
}

// RuntimeKnobsFromContext returns the knobs attached to ctx, or the
// permissive defaults if none were attached.
func RuntimeKnobsFromContext(ctx context.Context) RuntimeKnobs {
	if k, ok := ctx.Value(knobsContextKey{}).(RuntimeKnobs); ok {
		return k
	}
	return DefaultRuntimeKnobs()
}
