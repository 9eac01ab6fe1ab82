package http

// DialControl exposes the dialer hook for tests.
var DialControl = dialControl
