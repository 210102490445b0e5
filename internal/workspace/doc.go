/*
Package workspace is the single source of truth for the connected root: its
boards, its materialized and pending assets, and the visible window.

# Concurrency

One mutex guards the model. Filesystem calls happen outside it and their
results are applied in a single locked step, so readers never observe a
partial update. Each committed scan bumps a generation counter; work started
against an older generation (materializer batches, folder counts) is thrown
away and its references revoked.

# Materialization

Scans leave every asset pending. A tick scheduled through the injected
scheduler moves up to BatchCap assets from the head of the queue into the
materialized list, giving each a blob reference, until the window is full.
Scroll grows the window by WindowGrowth when the client nears the bottom.

# Mutations

Import, Delete, Move and CreateFolder need a writable root. Without one they
return ErrNoRoot, and in fallback mode ErrFallbackReadOnly. Failures are also
published as error notices.
*/
package workspace
