// Package ipc is the local control socket used by hark-ctl.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	CmdSay    = "say"
	CmdStatus = "status"
)

var ErrUnknownCommand = errors.New("unknown command")

// Message is one request on the socket.
type Message struct {
	Cmd    string `json:"cmd"`
	Text   string `json:"text,omitempty"`
	// Direct text skips the wake phrase.
	Direct bool `json:"direct,omitempty"`
}

// Response answers a Message.
type Response struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Handler serves one decoded message.
type Handler func(ctx context.Context, msg Message) (string, error)

// SocketPath is $XDG_RUNTIME_DIR/hark.sock, or /tmp/hark.sock.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "hark.sock")
	}
	return filepath.Join(os.TempDir(), "hark.sock")
}

type Server struct {
	path    string
	ln      net.Listener
	handler Handler
}

// Listen replaces a stale socket at path and starts accepting in the
// background until ctx is done.
func Listen(ctx context.Context, path string, h Handler) (*Server, error) {
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{path: path, ln: ln, handler: h}
	go s.accept(ctx)
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()
	return s, nil
}

func (s *Server) accept(ctx context.Context) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("Accept failed", "err", err)
			continue
		}
		go s.serve(ctx, conn)
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	var msg Message
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Debug("Bad control message", "err", err)
		return
	}

	var resp Response
	text, err := s.handler(ctx, msg)
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.OK, resp.Text = true, text
	}
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Debug("Failed to answer control message", "err", err)
	}
}

func (s *Server) Close() error {
	err := s.ln.Close()
	_ = os.Remove(s.path)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Send delivers msg to the daemon at path and waits for its response.
func Send(ctx context.Context, path string, msg Message) (Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Response{}, fmt.Errorf("send: %w", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
