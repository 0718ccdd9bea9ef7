package busctx

import "context"

type ctxIndex int

const (
	ctxIndexTrace ctxIndex = iota
	ctxIndexDevice
)

// IsTraced reports whether register frames should be logged for this call chain.
func IsTraced(ctx context.Context) bool {
	val := ctx.Value(ctxIndexTrace)
	if val == nil {
		return false
	}
	return val.(bool)
}

func SetTraced(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexTrace, value)
}

// Device returns the device label attached to the context, if any.
func Device(ctx context.Context) string {
	val := ctx.Value(ctxIndexDevice)
	if val == nil {
		return ""
	}
	return val.(string)
}

func SetDevice(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxIndexDevice, name)
}
