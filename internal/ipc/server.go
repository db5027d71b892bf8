package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"danmaku/internal/daemon"
	"danmaku/internal/logging"
)

const requestTimeout = 5 * time.Second

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serviceName, &service{daemon: d, logger: logger, ctx: serverCtx}); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, requestTimeout)
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	ctx, cancel := s.requestContext()
	defer cancel()
	*resp = statusResponse(s.daemon.Status(ctx))
	return nil
}

func (s *service) Play(req PlayRequest, resp *PlayResponse) error {
	ctx, cancel := s.requestContext()
	defer cancel()
	if err := s.daemon.Play(ctx, req.Path, req.Duration); err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Accepted = true
	resp.Message = "playback event queued"
	s.logger.Info("play requested via IPC",
		logging.String(logging.FieldVideo, req.Path),
		logging.String(logging.FieldEventType, "ipc_play"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	ctx, cancel := s.requestContext()
	defer cancel()
	if err := s.daemon.StopPlayback(ctx); err != nil {
		return err
	}
	resp.Stopped = true
	return nil
}

func (s *service) Reload(_ ReloadRequest, resp *ReloadResponse) error {
	ctx, cancel := s.requestContext()
	defer cancel()
	if err := s.daemon.Reload(ctx); err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Reloaded = true
	resp.Message = "settings reload queued"
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	ctx, cancel := s.requestContext()
	defer cancel()
	entries, err := s.daemon.History(ctx, req.Limit, req.Video)
	if err != nil {
		return err
	}
	resp.Entries = make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, HistoryEntry{
			RunID:      entry.RunID,
			Video:      entry.Video,
			Outcome:    string(entry.Outcome),
			EpisodeID:  entry.EpisodeID,
			Episode:    entry.Episode,
			Comments:   entry.Comments,
			Artifact:   entry.Artifact,
			Error:      entry.Error,
			StartedAt:  entry.StartedAt,
			FinishedAt: entry.FinishedAt,
		})
	}
	return nil
}

func statusResponse(status daemon.Status) StatusResponse {
	resp := StatusResponse{
		Running:      status.Running,
		PID:          status.PID,
		StartedAt:    status.StartedAt,
		Enabled:      status.Playback.Enabled,
		State:        string(status.Playback.State),
		Video:        status.Playback.Video,
		RunID:        status.Playback.RunID,
		Stage:        status.Playback.Stage,
		RunningSince: status.Playback.Since,
		MPVSocket:    status.MPVSocket,
		MPVConnected: status.MPVConnected,
		LockPath:     status.LockPath,
		HistoryPath:  status.HistoryPath,
		ProfileDir:   status.ProfileDir,
	}
	if last := status.Playback.Last; last != nil {
		summary := &RunSummary{
			RunID:    last.RunID,
			Video:    last.Video,
			Outcome:  string(last.Outcome),
			Episode:  last.Episode,
			Comments: last.Comments,
			Artifact: last.Artifact,
		}
		if last.Err != nil {
			summary.Error = last.Err.Error()
		}
		resp.LastRun = summary
	}
	for _, check := range status.Checks {
		resp.Checks = append(resp.Checks, CheckResult{Name: check.Name, Passed: check.Passed, Detail: check.Detail})
	}
	return resp
}
