package httputil

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	handler := RequestID()(func(ctx *fasthttp.RequestCtx) {
		seen, _ = ctx.UserValue("request_id").(string)
	})

	ctx := &fasthttp.RequestCtx{}
	handler(ctx)

	if seen == "" {
		t.Fatal("Expected generated request id")
	}
	if got := string(ctx.Response.Header.Peek(RequestIDHeader)); got != seen {
		t.Errorf("Expected response header %s, got %s", seen, got)
	}
}

func TestRequestID_KeepsCallerValue(t *testing.T) {
	handler := RequestID()(func(ctx *fasthttp.RequestCtx) {})

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set(RequestIDHeader, "abc")
	handler(ctx)

	if got := string(ctx.Response.Header.Peek(RequestIDHeader)); got != "abc" {
		t.Errorf("Expected abc, got %s", got)
	}
}

func TestRecover_ConvertsPanic(t *testing.T) {
	handler := Recover(zerolog.Nop())(func(ctx *fasthttp.RequestCtx) {
		panic("boom")
	})

	ctx := &fasthttp.RequestCtx{}
	handler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", ctx.Response.StatusCode())
	}
}

type bindTarget struct {
	Recipient string `json:"recipient" validate:"required,min=5"`
}

func TestBindJSON(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetBodyString(`{"recipient":"12"}`)

	var dst bindTarget
	if err := BindJSON(ctx, &dst); err == nil {
		t.Error("Expected validation error for short recipient, got nil")
	}

	ctx.Request.SetBodyString(`{"recipient":"1234567890"}`)
	if err := BindJSON(ctx, &dst); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if dst.Recipient != "1234567890" {
		t.Errorf("Expected recipient decoded, got %q", dst.Recipient)
	}
}
