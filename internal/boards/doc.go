// Package boards holds the domain model shared by the scanner and the workspace.
package boards
