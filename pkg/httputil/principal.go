package httputil

import "github.com/valyala/fasthttp"

const principalKey = "principal"

// Principal is the authenticated caller of a request
type Principal struct {
	UserID     uint
	KeyID      uint
	DailyLimit int
}

// SetPrincipal stores the authenticated caller on the request
func SetPrincipal(ctx *fasthttp.RequestCtx, p *Principal) {
	ctx.SetUserValue(principalKey, p)
}

// PrincipalFrom returns the authenticated caller, if any
func PrincipalFrom(ctx *fasthttp.RequestCtx) (*Principal, bool) {
	p, ok := ctx.UserValue(principalKey).(*Principal)
	return p, ok && p != nil
}
