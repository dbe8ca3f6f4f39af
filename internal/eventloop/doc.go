// Package eventloop provides a cooperative single-threaded event loop.
//
// Sources (pipe sides) expose Link objects; a Loop subscribes callbacks
// against links and dispatches them on its own goroutine when the source
// raises an edge via Notify.
//
// Features:
//   - Edge-triggered subscriptions: one dispatch per Notify, coalesced
//   - Level-triggered subscriptions: re-armed while the link reports ready
//   - Context-based cancellation of Run
//   - Structured logging and dispatch metrics
//
// Contract:
//   - Callbacks run on the loop goroutine and must not block indefinitely
//   - A link must be unsubscribed before the side that owns it is freed
//
// Example Usage:
//
//	loop := eventloop.New(logger, cfg.Loop.QueueDepth)
//	readable, _ := side.Links()
//	loop.Subscribe(readable, eventloop.ModeEdge, func() {
//		n := side.Receive(buf, 0)
//		process(buf[:n])
//	})
//	go loop.Run(ctx)
package eventloop
