package domain

import "errors"

var (
	ErrDuplicateTool    = errors.New("tool already registered")
	ErrUnknownTool      = errors.New("tool not registered")
	ErrEmptySelection   = errors.New("empty tool selection")
	ErrInvalidWeight    = errors.New("invalid tool weight")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrToolExecution    = errors.New("tool execution failed")
	ErrPriceUnavailable = errors.New("price source unavailable")
	ErrLogWrite         = errors.New("log write failed")
	ErrNoMarkets        = errors.New("no markets available")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrSigningFailed    = errors.New("signing failed")
	ErrWSDisconnect     = errors.New("websocket disconnected")
	ErrContextDone      = errors.New("context cancelled")
)
