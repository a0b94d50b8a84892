// Package relay implements the connection registry and message relay.
//
// Every accepted WebSocket connection becomes a Session with:
//   - A generated connection id registered in the shared Registry
//   - An inbound ring other sessions publish into (drop-oldest, 100 items)
//   - An outbound queue feeding the socket (blocking, 100 items)
//   - Four goroutines: writer, keepalive, inbound relay, dispatcher
//
// The session ends as soon as any one of the four goroutines returns.
// Cleanup (registry removal, socket close) then runs exactly once.
//
// Wire protocol (text frames carry JSON objects):
//
//	{"type": "register", "connectionId": "peer-x"}   add an alias for this session
//	{"target_id": "peer-x", ...}                     relay this frame verbatim and bind the target
//
// Binary frames are relayed to the most recently bound target.
package relay
