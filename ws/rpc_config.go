package ws

import (
	"context"

	"github.com/deepchat/server/config"
	"github.com/deepchat/server/rpc"
	"github.com/sourcegraph/jsonrpc2"
)

func (h *rpcMethodHandler) handleConfigGet(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	h.reply(ctx, conn, req, h.configs.Get())
}

// handleConfigSet replaces the global config. Fields missing from params
// take their default values.
func (h *rpcMethodHandler) handleConfigSet(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	cfg := config.Default()
	if err := unmarshalParams(req, &cfg); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	if err := h.configs.Set(cfg); err != nil {
		h.log.Error("failed to save config", "error", err)
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, "failed to save config")
		return
	}

	h.log.Info("config saved", "provider", cfg.Provider, "model", cfg.Model)
	h.reply(ctx, conn, req, struct{}{})
}

func (h *rpcMethodHandler) handleConfigSubscribe(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	id, cfg := h.configWatcher.Subscribe(conn, h.connID)
	h.reply(ctx, conn, req, rpc.ConfigSubscribeResult{ID: id, Config: cfg})
}

func (h *rpcMethodHandler) handleConfigUnsubscribe(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.UnsubscribeParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	h.configWatcher.Unsubscribe(params.ID)
	h.reply(ctx, conn, req, struct{}{})
}
