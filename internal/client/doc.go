// Package client implements a Go client for the relay wire protocol.
//
// A client connects once, optionally registers an alias, then sends
// targeted JSON text frames and binary frames. Binary frames follow the
// target of the most recent targeted text frame on the relay side.
package client
