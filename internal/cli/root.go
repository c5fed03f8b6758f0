package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/julianstephens/trendlit/internal/backup"
	"github.com/julianstephens/trendlit/internal/goals"
	"github.com/julianstephens/trendlit/internal/llm"
	"github.com/julianstephens/trendlit/internal/logger"
	"github.com/julianstephens/trendlit/internal/pipeline"
	"github.com/julianstephens/trendlit/internal/storage"
	"github.com/julianstephens/trendlit/internal/storage/sqlite"
	"github.com/julianstephens/trendlit/internal/trends"
)

type Context struct {
	Ctx        context.Context
	Store      storage.Provider
	LLM        llm.Config
	Thresholds trends.Config
	In         io.Reader
	Out        io.Writer
	Now        func() time.Time

	// NewGenerator builds the goal generator from LLM. Nil means llm.New.
	NewGenerator func(cfg llm.Config) (llm.Generator, error)
}

// Background returns the command's context, never nil.
func (c *Context) Background() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}

// Reader returns where prompts read answers from.
func (c *Context) Reader() io.Reader {
	if c.In != nil {
		return c.In
	}
	return os.Stdin
}

// Writer returns where command output goes.
func (c *Context) Writer() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Writer(), format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Writer(), args...)
}

// Clock returns the time source, defaulting to time.Now.
func (c *Context) Clock() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return time.Now
}

// Generator builds the configured goal generator.
func (c *Context) Generator() (llm.Generator, error) {
	if c.NewGenerator != nil {
		return c.NewGenerator(c.LLM)
	}
	return llm.New(c.LLM)
}

// Pipeline wires the store, a detector built from the configured thresholds
// and a synthesizer around gen. gen may be nil for detection-only runs. When
// save is false proposals are generated but never persisted.
func (c *Context) Pipeline(gen llm.Generator, save bool) (*pipeline.Pipeline, error) {
	detector, err := trends.NewDetector(c.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("invalid detector thresholds: %w", err)
	}
	var repo pipeline.Repository
	if save {
		repo = c.Store
	}
	synth := goals.NewSynthesizer(gen).WithClock(c.Clock())
	return pipeline.New(c.Store, detector, synth, repo).WithClock(c.Clock()), nil
}

// IsSQLite reports whether the store is file backed and can be backed up.
func (c *Context) IsSQLite() bool {
	_, ok := c.Store.(*sqlite.Store)
	return ok
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if !c.IsSQLite() {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(c.Background()); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}
