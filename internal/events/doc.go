// Package events fans workspace events out to server-sent event subscribers.
package events
