package apiclient

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/notesprobe/pkg/protocol"
)

// debugTransport logs each exchange before handing the response back.
// Header values are never logged because they carry the session token.
type debugTransport struct {
	base protocol.Client
	log  zerolog.Logger
}

func (dt *debugTransport) Do(ctx context.Context, req *protocol.Request) *protocol.Response {
	dt.log.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("body_bytes", len(req.Body)).
		Dur("timeout", req.Timeout).
		Msg("HTTP request")

	resp := dt.base.Do(ctx, req)

	if resp.Error != nil {
		dt.log.Error().Err(resp.Error).
			Str("method", req.Method).
			Str("url", req.URL).
			Int("status_code", resp.StatusCode).
			Dur("elapsed", resp.Duration).
			Msg("HTTP request failed")
		return resp
	}

	dt.log.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status_code", resp.StatusCode).
		Int64("bytes_read", resp.BytesRead).
		Dur("elapsed", resp.Duration).
		Msg("HTTP response")
	return resp
}

func (dt *debugTransport) Close() error {
	return dt.base.Close()
}
