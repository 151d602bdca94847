// Package audit implements async event dispatching for session lifecycle operations.
//
// # Components
//
//   - [Sink]: interface for event consumers. [ChannelSink], [JSONWriterSink] and
//     [NoOpSink] implement it; [MultiSink] fans out and [SinkFunc] adapts a function.
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured audit record with id, timestamp, type, user and metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that responsibility belongs to the Controller and Gateway.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on session logic.
//   - Import goSession or any sibling internal package.
//   - Record token values.
package audit
