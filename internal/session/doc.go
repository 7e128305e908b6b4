// Package session composes one UI-to-worker session: the single-instance
// lock, the worker subprocess, the correlation client, and the command
// journal. A session is one-shot; closing it drains every pending request.
package session
