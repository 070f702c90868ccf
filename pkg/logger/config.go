package logger

import "log/slog"

type Backend string

const (
	BackendStd Backend = "std" // text in dev; JSON in stage/prod
	BackendZap Backend = "zap" // slog-zap
)

type Config struct {
	// Logger metadata
	Service    string
	Version    string
	InstanceID string

	// Output control
	Level   slog.Level
	Env     Env
	Backend Backend // default: zap for stage/prod, std for dev
	Debug   bool

	// Zap sampling
	SampleInitial    int
	SampleThereafter int
	SampleTick       int

	// AddSource in dev
	AddSource bool
}
