package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOCR()
	c.normalizePreprocess()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.UploadsDir, err = expandPath(c.Paths.UploadsDir); err != nil {
		return fmt.Errorf("paths.uploads_dir: %w", err)
	}
	if c.Paths.AnnotatedDir, err = expandPath(c.Paths.AnnotatedDir); err != nil {
		return fmt.Errorf("paths.annotated_dir: %w", err)
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("REDINK_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeOCR() {
	c.OCR.APIKey = strings.TrimSpace(c.OCR.APIKey)
	if c.OCR.APIKey == "" {
		if value, ok := os.LookupEnv("REDINK_OCR_API_KEY"); ok {
			c.OCR.APIKey = strings.TrimSpace(value)
		}
	}
	c.OCR.BaseURL = strings.TrimSpace(c.OCR.BaseURL)
	if c.OCR.BaseURL == "" {
		c.OCR.BaseURL = defaultOCRBaseURL
	}
	c.OCR.Model = strings.TrimSpace(c.OCR.Model)
	if c.OCR.Model == "" {
		c.OCR.Model = defaultOCRModel
	}
	if c.OCR.TimeoutSeconds <= 0 {
		c.OCR.TimeoutSeconds = defaultOCRTimeoutSeconds
	}
	if c.OCR.MaxAttempts <= 0 {
		c.OCR.MaxAttempts = defaultOCRMaxAttempts
	}
	if c.OCR.RetryDelaySeconds <= 0 {
		c.OCR.RetryDelaySeconds = defaultOCRRetryDelaySeconds
	}
}

func (c *Config) normalizePreprocess() {
	if c.Preprocess.BBoxPadRatio <= 0 {
		c.Preprocess.BBoxPadRatio = defaultBBoxPadRatio
	}
}

func (c *Config) normalizeExport() {
	if c.Export.RetentionMinutes <= 0 {
		c.Export.RetentionMinutes = defaultExportRetentionMin
	}
	if c.Annotate.JPEGQuality <= 0 || c.Annotate.JPEGQuality > 100 {
		c.Annotate.JPEGQuality = defaultJPEGQuality
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}
