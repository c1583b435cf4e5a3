package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"kistrader/internal/client/kis"
)

// ApprovalKeyIssuer is the realtime-gateway credential capability of the
// broker client.
type ApprovalKeyIssuer interface {
	ApprovalKey(ctx context.Context) (string, error)
}

// ExecNoticeService tails the realtime execution-notice stream and logs
// fills as they land. It is an operational complement to the polled
// execution inquiry: reconciliation never depends on it, so a dropped
// stream only costs visibility, not correctness.
type ExecNoticeService struct {
	Broker ApprovalKeyIssuer
	WSURL  string
	HtsID  string
	Logger *zap.Logger
}

const execNoticeReconnectDelay = 5 * time.Second

func (s *ExecNoticeService) Run(ctx context.Context) error {
	if s == nil || s.Broker == nil || strings.TrimSpace(s.HtsID) == "" {
		return errors.New("exec notice: broker and hts id are required")
	}
	if s.Logger != nil {
		s.Logger.Info("execution notice stream starting",
			zap.String("url", s.WSURL),
			zap.String("hts_id", s.HtsID),
		)
	}
	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.Logger != nil {
			s.Logger.Warn("execution notice stream dropped, reconnecting", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(execNoticeReconnectDelay):
		}
	}
}

func (s *ExecNoticeService) runOnce(ctx context.Context) error {
	approvalKey, err := s.Broker.ApprovalKey(ctx)
	if err != nil {
		return err
	}
	ws := kis.NewWSClient(s.WSURL)
	if err := ws.Connect(ctx); err != nil {
		return err
	}
	defer ws.Close(websocket.StatusNormalClosure, "shutdown")

	if err := ws.SubscribeExecutions(ctx, approvalKey, s.HtsID); err != nil {
		return err
	}
	for {
		frame, err := ws.Read(ctx)
		if err != nil {
			return err
		}
		s.handleFrame(frame)
	}
}

// handleFrame logs data frames and answers nothing: the gateway's
// PINGPONG frames are JSON control messages the reconnect loop tolerates
// without a reply.
func (s *ExecNoticeService) handleFrame(frame []byte) {
	if s.Logger == nil || len(frame) == 0 {
		return
	}
	// Data frames are caret-delimited and start with an encryption flag;
	// JSON frames are subscription acks and heartbeats.
	if frame[0] == '{' {
		s.Logger.Debug("execution notice control frame", zap.ByteString("frame", frame))
		return
	}
	s.Logger.Info("execution notice", zap.ByteString("frame", frame))
}
