// Package notifications delivers job and collection events to ntfy.
//
// The default implementation publishes to the topic configured under
// [notifications] and degrades to a no-op when no topic is set. Each event
// type can be switched off individually; disabled events are dropped without
// a request.
package notifications
