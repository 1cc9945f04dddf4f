package domain

import "context"

type ctxKey int

const requestInfoKey ctxKey = iota

// RequestInfo describes who made an administration request.
type RequestInfo struct {
	ActorType string
	ActorID   string
	IPAddress string
	UserAgent string
}

func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

func RequestInfoFromContext(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}
	info, _ := ctx.Value(requestInfoKey).(RequestInfo)
	return info
}
