package serial

import (
	"fmt"

	"github.com/conduit-lang/rtti/pkg/rtti"
)

// HookType represents when a hook runs
type HookType int

const (
	// HookPreSerialize runs once per instance before it is written
	HookPreSerialize HookType = iota
	// HookPostDeserialize runs once per instance after the whole graph is populated
	HookPostDeserialize
)

// String returns the string representation of the hook type
func (h HookType) String() string {
	switch h {
	case HookPreSerialize:
		return "pre_serialize"
	case HookPostDeserialize:
		return "post_deserialize"
	default:
		return "unknown"
	}
}

// PreSerializer is implemented by objects that prepare themselves before being written
type PreSerializer interface {
	PreSerialize() error
}

// PostDeserializer is implemented by objects that finish their setup once
// every reference in the graph is resolved
type PostDeserializer interface {
	PostDeserialize() error
}

// hookSet holds the hooks given as options, by type
type hookSet map[HookType][]rtti.HookFunc

// run executes the hooks of one instance in order: type hooks (base types
// first), then the object's own method, then hooks given as options
func (hs hookSet) run(hookType HookType, obj rtti.Reflectable) error {
	td := obj.RTTI()

	var typeHooks []rtti.HookFunc
	switch hookType {
	case HookPreSerialize:
		typeHooks = td.SerializeHooks()
	case HookPostDeserialize:
		typeHooks = td.DeserializedHooks()
	}
	for _, hook := range typeHooks {
		if err := hook(obj); err != nil {
			return fmt.Errorf("hook %s failed for %s: %w", hookType, td.Name(), err)
		}
	}

	var err error
	switch hookType {
	case HookPreSerialize:
		if p, ok := obj.(PreSerializer); ok {
			err = p.PreSerialize()
		}
	case HookPostDeserialize:
		if p, ok := obj.(PostDeserializer); ok {
			err = p.PostDeserialize()
		}
	}
	if err != nil {
		return fmt.Errorf("hook %s failed for %s: %w", hookType, td.Name(), err)
	}

	for _, hook := range hs[hookType] {
		if err := hook(obj); err != nil {
			return fmt.Errorf("hook %s failed for %s: %w", hookType, td.Name(), err)
		}
	}
	return nil
}
