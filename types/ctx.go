package types

import "context"

type CtxKey string

const (
	IPKey   CtxKey = "ip"
	NameKey CtxKey = "name"
)

func CtxGetIP(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(IPKey).(string)
	return ip, ok
}

func CtxGetName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(NameKey).(string)
	return name, ok
}
