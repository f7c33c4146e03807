// Package app provides the application context for forage-blocks.
//
// This package turns a loaded config.Config into live dependencies using the
// functional options pattern, enabling easy testing through dependency
// injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Config   *config.Config     // Loaded configuration
//	    Channel  channel.Channel    // Local or SSH endpoint
//	    Launcher launcher.Launcher  // Command wrapper for blocks
//	    Metrics  *metrics.Collector // Prometheus job metrics
//	    Audit    *audit.Logger      // JSONL event log, optional
//	}
//
// The provider is built on first call to Provider, with Metrics, Audit and
// any WithObserver observers attached.
//
// # Creating an App
//
//	// Production usage
//	a, err := app.New(ctx, cfg)
//	defer a.Close()
//
//	// Testing with custom dependencies
//	a, err := app.New(ctx, cfg,
//	    app.WithChannel(channel.NewMockChannel()),
//	    app.WithFileSystem(system.NewMockFS()),
//	)
//
// # Available Options
//
//	WithChannel(ch)      // Skip connecting; use ch
//	WithFileSystem(fs)   // Custom file system for script copies
//	WithObserver(o)      // Extra lifecycle observer
package app
