// Package config loads the optional webmatch JSON configuration file.
//
// Settings left out of the file keep their defaults, and command line flags
// are merged on top with Config.Merge.
package config
