package utils

import "io"

// CancelOnClose ties a context cancel func to a response body so the
// upstream call's deadline resources are released exactly when the relayed
// body is closed, never before the copy finishes.
type CancelOnClose struct {
	io.ReadCloser
	Cancel func()
}

func (c *CancelOnClose) Close() error {
	if c.Cancel != nil {
		c.Cancel()
	}
	return c.ReadCloser.Close()
}

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer where error handling is not critical.
func Close(c io.Closer) {
	_ = c.Close()
}
