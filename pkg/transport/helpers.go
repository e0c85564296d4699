package transport

import (
	"io"
	"io/ioutil"
)

// maxResponseBody is how much of a failed response is kept for logging.
const maxResponseBody = 512

// consumeAndClose will read all the data from the provided io.ReadCloser, then close
// it.  Intended to safely drain HTTP connections.
func consumeAndClose(r io.ReadCloser) {
	_, _ = io.Copy(ioutil.Discard, r)
	_ = r.Close()
}

// readPrefix reads up to maxResponseBody bytes of r for diagnostics.
func readPrefix(r io.Reader) string {
	b, _ := ioutil.ReadAll(io.LimitReader(r, maxResponseBody))
	return string(b)
}
