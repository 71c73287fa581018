package service

import "errors"

// ErrClientClosed indicates the client has been closed.
var ErrClientClosed = errors.New("runfilter: client is closed")

// ErrInvalidPagination indicates a negative limit or offset.
var ErrInvalidPagination = errors.New("invalid pagination")
