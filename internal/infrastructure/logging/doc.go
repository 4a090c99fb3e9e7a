// Package logging provides structured logging using uber/zap.
//
// Production builds log JSON; development builds log colored console lines.
// Sandbox components take a plain *zap.Logger; Logger adds helpers that
// scope one to a run, a session or a bridge host:
//
//	logger := logging.NewDefault()
//	prog, err := loader.New(src, loader.WithOptions(loader.Options{Logger: logger.Run(id)}))
//
// Guest console calls are logged by the interpreter under the "sandbox"
// name of whatever logger it was given.
package logging
