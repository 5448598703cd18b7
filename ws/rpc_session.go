package ws

import (
	"context"

	"github.com/deepchat/server/rpc"
	"github.com/sourcegraph/jsonrpc2"
)

func (h *rpcMethodHandler) handleSessionList(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	sessions := h.store.List()
	h.reply(ctx, conn, req, rpc.SessionListResult{Sessions: sessions, Total: len(sessions)})
}

func (h *rpcMethodHandler) handleSessionGet(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.SessionParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	sess, ok := h.store.Get(params.SessionID)
	if !ok {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "session not found")
		return
	}
	h.reply(ctx, conn, req, sess)
}

func (h *rpcMethodHandler) handleSessionCreate(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	sess, err := h.store.Create(ctx)
	if err != nil {
		h.replyStoreError(ctx, conn, req, err)
		return
	}

	h.log.Info("session created", "sessionId", sess.ID)
	h.reply(ctx, conn, req, sess)
}

func (h *rpcMethodHandler) handleSessionDelete(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.SessionParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	if err := h.store.Delete(ctx, params.SessionID); err != nil {
		h.replyStoreError(ctx, conn, req, err)
		return
	}

	h.log.Info("session deleted", "sessionId", params.SessionID)
	h.reply(ctx, conn, req, struct{}{})
}

func (h *rpcMethodHandler) handleSessionUpdateTitle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.SessionUpdateTitleParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}
	if params.Title == "" {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "title required")
		return
	}

	if err := h.store.UpdateTitle(ctx, params.SessionID, params.Title); err != nil {
		h.replyStoreError(ctx, conn, req, err)
		return
	}

	h.log.Info("session title updated", "sessionId", params.SessionID, "title", params.Title)
	h.reply(ctx, conn, req, struct{}{})
}

func (h *rpcMethodHandler) handleSessionGetMessages(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.SessionParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	sess, ok := h.store.Get(params.SessionID)
	if !ok {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "session not found")
		return
	}
	h.reply(ctx, conn, req, rpc.SessionMessagesResult{Messages: sess.Messages})
}

func (h *rpcMethodHandler) handleSessionSetMessages(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.SessionSetMessagesParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	if err := h.store.SetMessages(ctx, params.SessionID, params.Messages); err != nil {
		h.replyStoreError(ctx, conn, req, err)
		return
	}

	h.log.Info("session messages replaced", "sessionId", params.SessionID, "count", len(params.Messages))
	h.reply(ctx, conn, req, struct{}{})
}

func (h *rpcMethodHandler) handleSessionUpdateConfig(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.SessionUpdateConfigParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	if err := h.store.UpdateConfig(ctx, params.SessionID, params.Config); err != nil {
		h.replyStoreError(ctx, conn, req, err)
		return
	}

	h.log.Info("session config updated", "sessionId", params.SessionID)
	h.reply(ctx, conn, req, struct{}{})
}

func (h *rpcMethodHandler) handleSessionListSubscribe(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	id, sessions := h.sessionList.Subscribe(conn, h.connID)
	h.reply(ctx, conn, req, rpc.SessionListSubscribeResult{ID: id, Sessions: sessions})
}

func (h *rpcMethodHandler) handleSessionListUnsubscribe(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.UnsubscribeParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	h.sessionList.Unsubscribe(params.ID)
	h.reply(ctx, conn, req, struct{}{})
}
