/*
Package blobstore hands out short-lived references to lazy byte sources.

A reference has the form "blob:<uuid>" and stays valid until revoked:

	ref := reg.Create(src)
	defer reg.Revoke(ref)

	rc, src, err := reg.Open(ref)

The HTTP layer serves a reference's bytes. The workspace creates references
as assets enter the visible window and revokes them when assets leave it or
the root changes. Revoking an unknown reference does nothing.
*/
package blobstore
