// Package domain contains the core types shared by the flow engine, the
// session store and the adapters: the flat session state map, the step
// status machine and the common error values.
//
// It has no dependencies on the engine internals, so adapters and hosts can
// depend on it without pulling in the runtime.
package domain
