// Package client is the thin TCP transport the collectiond client binary
// uses to talk to a collectiond server: dial with retry/backoff, exchange
// one length-prefixed framed Request/Response pair per Send, close.
//
// See Also
//
//   - Connection:  Client, New, Connect, Send, Close
//   - Errors:      ErrNotConnected
package client
