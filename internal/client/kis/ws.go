package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nhooyr.io/websocket"
)

const DefaultExecNoticeWSURL = "ws://ops.koreainvestment.com:21000"

// Overseas execution-notice TR for the realtime gateway.
const trExecNotice = "H0GSCNI0"

type wsSubscribeRequest struct {
	Header wsSubscribeHeader `json:"header"`
	Body   wsSubscribeBody   `json:"body"`
}

type wsSubscribeHeader struct {
	ApprovalKey string `json:"approval_key"`
	Custtype    string `json:"custtype"`
	TrType      string `json:"tr_type"`
	ContentType string `json:"content-type"`
}

type wsSubscribeBody struct {
	Input wsSubscribeInput `json:"input"`
}

type wsSubscribeInput struct {
	TrID  string `json:"tr_id"`
	TrKey string `json:"tr_key"`
}

// WSClient streams realtime execution notices. It is an optional
// complement to the polled execution inquiry: the periodic cycle works
// without it, but a connected stream lets an operator watch fills land
// between cycles.
type WSClient struct {
	url  string
	conn *websocket.Conn
}

func NewWSClient(url string) *WSClient {
	if strings.TrimSpace(url) == "" {
		url = DefaultExecNoticeWSURL
	}
	return &WSClient{url: url}
}

func (c *WSClient) Connect(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("kis: ws client is nil")
	}
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *WSClient) Close(status websocket.StatusCode, reason string) error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close(status, reason)
}

// SubscribeExecutions registers the execution-notice stream for one
// HTS user id (the tr_key for this TR).
func (c *WSClient) SubscribeExecutions(ctx context.Context, approvalKey, htsID string) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("kis: ws not connected")
	}
	req := wsSubscribeRequest{
		Header: wsSubscribeHeader{
			ApprovalKey: approvalKey,
			Custtype:    "P",
			TrType:      "1",
			ContentType: "utf-8",
		},
		Body: wsSubscribeBody{
			Input: wsSubscribeInput{TrID: trExecNotice, TrKey: htsID},
		},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

// Read returns the next raw frame. Control frames (PINGPONG etc.) come
// back as-is; the caller decides what to decode.
func (c *WSClient) Read(ctx context.Context) ([]byte, error) {
	if c == nil || c.conn == nil {
		return nil, fmt.Errorf("kis: ws not connected")
	}
	_, data, err := c.conn.Read(ctx)
	return data, err
}
