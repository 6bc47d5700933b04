package client

import "errors"

// ErrNotConnected is returned by Send when called before a successful
// Connect.
var ErrNotConnected = errors.New("client: not connected")
