package config

import "fmt"

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	if c.MediaServer.URL == "" {
		errs = append(errs, "mediaserver.url: required")
	}

	if c.Import.MaxParallelMovieImports < 0 {
		errs = append(errs, fmt.Sprintf("import.max_parallel_movie_imports: must not be negative, got %d", c.Import.MaxParallelMovieImports))
	}
	if c.Import.SeriesImportDelay.Duration < 0 {
		errs = append(errs, "import.series_import_delay: must not be negative")
	}
	if c.Import.CatalogImportTimeout.Duration < 0 {
		errs = append(errs, "import.catalog_import_timeout: must not be negative")
	}

	return errs
}
