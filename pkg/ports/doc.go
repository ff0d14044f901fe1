// Package ports defines the interfaces between the flow engine core and the
// outside world: storage backends, the rendering surface, text extraction
// and chat models.
//
// The engine depends only on these interfaces; concrete implementations
// live under pkg/adapters and internal.
package ports
