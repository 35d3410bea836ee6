package snsctx

import (
	"context"
	"encoding/hex"
	"log/slog"
)

type ctxIndex int

const ctxIndexVerbose ctxIndex = iota

func IsVerbose(ctx context.Context) bool {
	val := ctx.Value(ctxIndexVerbose)
	if val == nil {
		return false
	}
	return val.(bool)
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// TraceTransfer dumps a bus transfer at debug level when the context is verbose.
func TraceTransfer(ctx context.Context, op string, address byte, buffer []byte) {
	if !IsVerbose(ctx) {
		return
	}
	slog.Debug("bus transfer", "op", op, "addr", address, "len", len(buffer), "data", hex.EncodeToString(buffer))
}
