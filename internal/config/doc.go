// Package config defines configuration structures for the canvasdl CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (CANVASDL_ prefix)
//   - YAML configuration file
//
// Later sources override earlier ones: defaults, then the file, then the
// environment, then flags.
//
// The API token is deliberately absent from Config. It is read from the
// CANVASDL_TOKEN environment variable or the -token flag and handed
// straight to the fetch client, so it never lands in a config file or a
// serialized summary.
//
// # Structure
//
//	type Config struct {
//	    Root     string
//	    API      APIConfig
//	    Download DownloadConfig
//	    Layout   LayoutConfig
//	    Report   ReportConfig
//	}
//
//	type DownloadConfig struct {
//	    Parallel     int
//	    ChunkSize    int64
//	    SkipExisting bool
//	    RateInterval time.Duration
//	    Retry        RetryConfig
//	}
package config
