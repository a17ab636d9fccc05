package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
)

// Handler answers one decoded request. The returned messages are written
// in order before the connection is closed; a KWrapperRequest is normally
// answered with an OKReply followed by a ChildDiedNotice.
type Handler interface {
	Handle(context.Context, Message) []Message
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Message) []Message

func (f HandlerFunc) Handle(ctx context.Context, req Message) []Message {
	return f(ctx, req)
}

// Serve accepts launcher clients until context cancellation or listener
// close. It speaks the daemon side of the protocol: one request per
// connection.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept launcher connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()

			header, payload, err := ReadFrame(c)
			if err != nil {
				return
			}

			req, err := DecodeRequest(header.Command, payload)
			if err != nil {
				_ = WriteMessage(c, ErrorReply{})
				return
			}

			for _, reply := range handler.Handle(ctx, req) {
				if err := WriteMessage(c, reply); err != nil {
					return
				}
			}
		}(conn)
	}
}
