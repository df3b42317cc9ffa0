package constants

import "time"

// Version of the impressa client.
const Version = "0.3.0"

// Network defaults
const (
	DefaultServerURL     = "http://localhost:8000"
	DefaultDashboardAddr = "127.0.0.1:4040"
	WSBufferSize         = 16384
	MaxWSMessageSize     = 1 << 20 // 1MB, job payloads are tiny
	WSHandshakeTimeout   = 10 * time.Second
	DashboardShutdown    = 5 * time.Second
)

// API endpoints
const (
	EndpointLogin     = "/login"
	EndpointPrinters  = "/printers/"
	EndpointPrintJob  = "/print-job/"
	EndpointWebSocket = "/ws"
)

// Header names
const (
	HeaderRequestID = "X-Request-ID"
	ContentTypeJSON = "application/json"
)

// Status log
const (
	DefaultTailSize      = 15
	DefaultRedisPrefix   = "impressa:status:"
	MaxErrorBodyExcerpt  = 512
	StatusJobSent        = "Print job sent to printer: %s"
	StatusJobReceived    = "Received print job for printer: %s"
	StatusStreamRejected = "Notification stream rejected: %s"
)

// Time formats
const (
	TimeFormatShort = "15:04:05"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorPurple = "\033[35m"
)

// Messages
const (
	MsgLoginFailed      = "Login failed"
	MsgPrintersFailed   = "Could not load printers"
	MsgPrintJobFailed   = "Could not send print job"
	MsgStreamFailed     = "Notification stream unavailable"
	MsgNotAuthenticated = "Log in first"
)
