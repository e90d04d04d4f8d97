package fvlog

type Level uint8

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

const (
	KeyRequestID  = "request_id"
	KeyCollection = "collection"
	KeyEntityID   = "entity_id"
	KeyField      = "field"
)
