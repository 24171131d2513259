package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// idleServer accepts a connection and drains it until the client leaves.
func idleServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// subscribeServer confirms the first request with subID, then writes notification.
func subscribeServer(t *testing.T, wantMethod string, subID int64, notification map[string]interface{}, gotParams chan<- []json.RawMessage) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != wantMethod {
			t.Errorf("expected %s, got %s", wantMethod, req.Method)
		}
		if gotParams != nil {
			gotParams <- req.Params
		}

		if err := c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: subID}); err != nil {
			t.Errorf("write response: %v", err)
			return
		}

		time.Sleep(50 * time.Millisecond)
		if err := c.WriteJSON(notification); err != nil {
			t.Errorf("write notification: %v", err)
			return
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_Connect(t *testing.T) {
	client, err := NewWSClient(context.Background(), wsURL(idleServer(t)), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestWSClient_SubscribeLogs(t *testing.T) {
	notif := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "logsNotification",
		"params": map[string]interface{}{
			"subscription": 12345,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": 100},
				"value": map[string]interface{}{
					"signature": "testsig",
					"logs":      []string{"Program log: Instruction: Buy"},
					"err":       nil,
				},
			},
		},
	}
	server := subscribeServer(t, "logsSubscribe", 12345, notif, nil)

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"testprogram"}})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	select {
	case got := <-ch:
		if got.Signature != "testsig" || len(got.Logs) != 1 || got.Slot != 100 {
			t.Errorf("unexpected notification: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_SubscribeTransactions(t *testing.T) {
	notif := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "transactionNotification",
		"params": map[string]interface{}{
			"subscription": 77,
			"result": map[string]interface{}{
				"signature": "txsig",
				"slot":      4242,
				"transaction": map[string]interface{}{
					"transaction": map[string]interface{}{
						"signatures": []string{"txsig"},
						"message": map[string]interface{}{
							"accountKeys": []string{"payer", "program"},
						},
					},
					"meta": map[string]interface{}{
						"err": nil,
						"innerInstructions": []map[string]interface{}{
							{
								"index": 2,
								"instructions": []map[string]interface{}{
									{"programIdIndex": 1, "accounts": []int{0}, "data": "abc"},
								},
							},
						},
					},
				},
			},
		},
	}
	params := make(chan []json.RawMessage, 1)
	server := subscribeServer(t, "transactionSubscribe", 77, notif, params)

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	failed := false
	ch, err := client.SubscribeTransactions(ctx, TransactionFilter{
		AccountInclude:  []string{"mint"},
		AccountRequired: []string{"program"},
		Failed:          &failed,
	})
	if err != nil {
		t.Fatalf("SubscribeTransactions: %v", err)
	}

	p := <-params
	var filter map[string]interface{}
	var opts map[string]interface{}
	json.Unmarshal(p[0], &filter)
	json.Unmarshal(p[1], &opts)
	if _, ok := filter["accountExclude"]; ok {
		t.Error("empty exclude list should be omitted")
	}
	if filter["failed"] != false {
		t.Errorf("expected failed=false, got %v", filter["failed"])
	}
	if opts["commitment"] != CommitmentProcessed || opts["encoding"] != "json" || opts["transactionDetails"] != "full" {
		t.Errorf("unexpected options: %v", opts)
	}

	select {
	case got := <-ch:
		if got.Signature != "txsig" || got.Slot != 4242 {
			t.Errorf("unexpected notification: %+v", got)
		}
		if got.Transaction == nil || got.Transaction.Slot != 4242 {
			t.Fatalf("expected transaction at slot 4242, got %+v", got.Transaction)
		}
		data := got.Transaction.InnerInstructionData()
		if len(data) != 1 || data[0] != "abc" {
			t.Errorf("unexpected inner data: %v", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_Close(t *testing.T) {
	client, err := NewWSClient(context.Background(), wsURL(idleServer(t)), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestWSClient_CloseClosesSubscriptions(t *testing.T) {
	notif := map[string]interface{}{"jsonrpc": "2.0", "method": "noop"}
	server := subscribeServer(t, "transactionSubscribe", 5, notif, nil)

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	ch, err := client.SubscribeTransactions(ctx, TransactionFilter{})
	if err != nil {
		t.Fatalf("SubscribeTransactions: %v", err)
	}

	client.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel not closed")
	}
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(idleServer(t)), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	client.Close()

	if _, err := client.SubscribeLogs(ctx, LogsFilter{}); err == nil {
		t.Error("expected error subscribing after close")
	}
	if _, err := client.SubscribeTransactions(ctx, TransactionFilter{}); err == nil {
		t.Error("expected error subscribing after close")
	}
}

func TestWSClient_SubscribeTimeout(t *testing.T) {
	config := DefaultWSConfig()
	config.SubscribeTimeout = 50 * time.Millisecond

	client, err := NewWSClient(context.Background(), wsURL(idleServer(t)), &config)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if _, err := client.SubscribeTransactions(context.Background(), TransactionFilter{}); err == nil {
		t.Fatal("expected timeout without confirmation")
	}
}

func TestWSClient_CustomConfig(t *testing.T) {
	config := &WSClientConfig{
		ReconnectDelay:    100 * time.Millisecond,
		MaxReconnectDelay: 1 * time.Second,
		PingInterval:      5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Second,
	}

	client, err := NewWSClient(context.Background(), wsURL(idleServer(t)), config)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.config.PingInterval != 5*time.Second {
		t.Errorf("expected PingInterval 5s, got %v", client.config.PingInterval)
	}
	if client.config.SubscribeTimeout == 0 || client.config.Logger == nil {
		t.Error("missing defaults should be filled in")
	}
}
