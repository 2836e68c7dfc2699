// Package logging configures log/slog loggers for feo.
//
// Create a logger from a Config:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("server started", "addr", "127.0.0.1:5000")
//
// Components accept a *slog.Logger through an option. When none is given
// they fall back to Nop.
package logging
