package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/do"

	"toylang/internal/config"
	"toylang/internal/runtime"
	"toylang/internal/symtab"
)

// streams are the process I/O handles a command runs against.
type streams struct {
	in          io.Reader
	out         io.Writer
	err         io.Writer
	interactive bool
}

// newInjector registers the providers for one command invocation. Services
// are built lazily on first Invoke, so commands that never run a program
// never load the config file.
func newInjector(flags cliFlags, s streams) *do.Injector {
	i := do.New()
	do.ProvideValue(i, flags)
	do.ProvideValue(i, s)
	do.Provide(i, provideConfig)
	do.Provide(i, provideLogger)
	do.Provide(i, provideConsole)
	do.Provide(i, provideInterpreter)
	do.Provide(i, provideGlobals)
	return i
}

// provideConfig loads the settings file and applies flag overrides.
func provideConfig(i *do.Injector) (*config.Config, error) {
	flags := do.MustInvoke[cliFlags](i)

	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.strict {
		cfg.Runtime.Strict = true
	}
	if flags.capacity > 0 {
		cfg.Symbols.Capacity = flags.capacity
	}
	return cfg, nil
}

func provideLogger(i *do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	s := do.MustInvoke[streams](i)

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(s.err, opts)
	} else {
		handler = slog.NewTextHandler(s.err, opts)
	}
	return slog.New(handler).With(slog.String("run-id", uuid.NewString())), nil
}

// provideConsole only prompts before reads when stdin is a terminal.
func provideConsole(i *do.Injector) (*runtime.Console, error) {
	cfg := do.MustInvoke[*config.Config](i)
	s := do.MustInvoke[streams](i)

	prompt := ""
	if s.interactive {
		prompt = cfg.Console.Prompt
	}
	return runtime.NewConsole(s.in, s.out, prompt, cfg.Console.Locale)
}

func provideInterpreter(i *do.Injector) (*runtime.Interpreter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	console, err := do.Invoke[*runtime.Console](i)
	if err != nil {
		return nil, err
	}
	logger := do.MustInvoke[*slog.Logger](i)

	return runtime.NewInterpreter(console, runtime.Options{
		Strict:       cfg.Runtime.Strict,
		MaxCallDepth: cfg.Runtime.MaxCallDepth,
		ReadRetries:  cfg.Runtime.ReadRetries,
		Logger:       logger,
	}), nil
}

func provideGlobals(i *do.Injector) (*symtab.Table, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return symtab.New(cfg.Symbols.Capacity), nil
}
