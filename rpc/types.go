// Package rpc defines JSON-RPC 2.0 wire format types for the management
// WebSocket. These types are the params and results of every RPC method.
package rpc

import (
	"github.com/deepchat/server/config"
	"github.com/deepchat/server/session"
)

// Client → Server

type SessionParams struct {
	SessionID string `json:"session_id"`
}

type SessionUpdateTitleParams struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
}

type SessionSetMessagesParams struct {
	SessionID string            `json:"session_id"`
	Messages  []session.Message `json:"messages"`
}

type SessionUpdateConfigParams struct {
	SessionID string         `json:"session_id"`
	Config    map[string]any `json:"config"`
}

type UnsubscribeParams struct {
	ID string `json:"id"`
}

// Server → Client

type SessionListResult struct {
	Sessions []session.SessionMeta `json:"sessions"`
	Total    int                   `json:"total"`
}

type SessionMessagesResult struct {
	Messages []session.Message `json:"messages"`
}

type SessionListSubscribeResult struct {
	ID       string                `json:"id"`
	Sessions []session.SessionMeta `json:"sessions"`
}

type ConfigSubscribeResult struct {
	ID     string        `json:"id"`
	Config config.Config `json:"config"`
}
