/*
Package scanner enumerates the immediate children of a root directory.

Scan asks for read-write access first and fails with fsapi.ErrPermissionDenied
when it is refused. It then lists the root once: media files become assets
with a DirectoryBacked origin and no reference yet, subdirectories become
boards. Nothing is read from the files themselves. The board list is handed
to a callback after every discovery so a client can draw boards before the
scan ends.

	res, err := s.Scan(ctx, root, func(folders []boards.Folder) {
	    publish(folders)
	})

CountFolders fills in board sizes afterwards, several boards at a time. A
board that cannot be listed keeps a count of zero.
*/
package scanner
