/*
Package streaming bounds how long a response may stall.

The server runs without a global write timeout so event streams can stay
open. A client that stops reading a large video would then hold its file
open indefinitely. [Writer] wraps an http.ResponseWriter and moves the
connection's write deadline forward before every write, so a response only
fails when a single write stalls, never because it is long.

# Usage

	sw := streaming.Wrap(w, streaming.DefaultConfig())
	defer sw.Close()
	http.ServeContent(sw, r, name, modTime, content)

Deadlines are set through http.ResponseController, so every wrapper between
the handler and the connection must implement Unwrap. When the underlying
writer cannot take deadlines (httptest.ResponseRecorder, for one) the writer
still enforces MaxDuration and counts bytes.

Close clears the deadline so a kept-alive connection is not cut short by the
previous response.
*/
package streaming
