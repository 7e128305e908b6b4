package console

import (
	"context"

	"bioviz/internal/engine"
	"bioviz/internal/protocol"
	"bioviz/internal/session"
)

// Backend is the slice of a session the console drives.
type Backend interface {
	Call(ctx context.Context, cmd string, payload any) (*protocol.Response, error)
	Notify(ctx context.Context, cmd string, payload any) error
	Status() Status
}

// Status is the connectivity snapshot rendered in the footer.
type Status struct {
	Connected bool
	Pending   int
	Version   string
	InFlight  []engine.InFlight
}

type sessionBackend struct {
	sess *session.Session
}

// SessionBackend adapts a live session to the console.
func SessionBackend(sess *session.Session) Backend {
	return sessionBackend{sess: sess}
}

func (b sessionBackend) Call(ctx context.Context, cmd string, payload any) (*protocol.Response, error) {
	return b.sess.Call(ctx, cmd, payload)
}

func (b sessionBackend) Notify(ctx context.Context, cmd string, payload any) error {
	return b.sess.Notify(ctx, cmd, payload)
}

func (b sessionBackend) Status() Status {
	client := b.sess.Client()
	info, _ := client.ReadyInfo()
	return Status{
		Connected: client.Connected(),
		Pending:   client.Pending(),
		Version:   info.Version,
		InFlight:  client.InFlight(),
	}
}

// EnvelopeFeed bridges engine envelope callbacks into the bubbletea loop.
// Register Hook() as the session's envelope observer before starting the
// program; the model drains the channel one message per Update pass.
type EnvelopeFeed struct {
	ch chan *protocol.Response
}

func NewEnvelopeFeed() *EnvelopeFeed {
	return &EnvelopeFeed{ch: make(chan *protocol.Response, 64)}
}

// Hook returns the observer callback. It never blocks the engine read loop:
// when the console falls behind, envelopes are dropped from the transcript
// (request resolution is unaffected).
func (f *EnvelopeFeed) Hook() func(*protocol.Response) {
	return func(resp *protocol.Response) {
		select {
		case f.ch <- resp:
		default:
		}
	}
}
