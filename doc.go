/*
Package flowdeck is a configuration-driven workflow builder for
LLM-assisted document tasks. Flows are declared in YAML templates,
compiled into an ordered list of typed steps and driven through render
passes until every step settles.

It separates the flow semantics (steps, statuses, session state) from
the rendering surface: any host that can show widgets and return their
values (a terminal, a web handler, a test script) implements
ports.Renderer and can drive the same flow.

# Key Features

  - Declarative templates: YAML with include directives and $ref/$allOf
    composition, resolved deterministically before a flow is built.
  - Derived step statuses: a step's status is computed from session
    state on every pass, never stored, so reloads cannot desynchronize.
  - Named sessions: persistent state is snapshotted per session and can
    be switched, duplicated and renamed.
  - Pluggable storage: local filesystem or Redis behind one interface.

# Usage

Initialize the App from configuration, then load and run a flow against
a renderer.

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/flowdeck"
	)

	func main() {
		cfg := flowdeck.DefaultConfig()
		app, err := flowdeck.New(&cfg)
		if err != nil {
			log.Fatal(err)
		}

		// renderer is any ports.Renderer; the flowdeck CLI ships a
		// terminal surface and a JSON web surface.
		ctx := context.Background()
		if err := app.RunFlow(ctx, "decision_docs/create_prd", renderer); err != nil {
			log.Fatal(err)
		}
	}
*/
package flowdeck
