// Package config defines configuration for the collabspace CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (COLLABSPACE_ prefix, optionally from a .env file)
//   - YAML configuration file
//
// Flags override the environment, which overrides the file.
//
// # Structure
//
//	type Config struct {
//	    Catalog      string
//	    Bucket       string
//	    Object       string
//	    BatchSize    int
//	    BatchPause   time.Duration
//	    Timeout      time.Duration
//	    MaxAssetSize int64
//	    Progress     bool
//	    LogLevel     string
//	    LogFormat    string
//	    Timezone     string
//	    Duplicates   string
//	    Retry        RetryConfig
//	}
//
//	type RetryConfig struct {
//	    Attempts  int
//	    BaseDelay time.Duration
//	}
package config
