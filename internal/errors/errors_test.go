package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestHotbuildError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *HotbuildError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestHotbuildError_WithContext(t *testing.T) {
	err := New(CategoryCompile, SeverityWarning, "compilation failed").
		WithContext("plugin", "inventory").
		WithContext("file", "client/index.ts")

	if err.Context == nil {
		t.Fatal("Context should not be nil")
	}

	if err.Context["plugin"] != "inventory" {
		t.Errorf("Context[plugin] = %v, want inventory", err.Context["plugin"])
	}

	if err.Context["file"] != "client/index.ts" {
		t.Errorf("Context[file] = %v, want client/index.ts", err.Context["file"])
	}
}

func TestIsCategory(t *testing.T) {
	configErr := New(CategoryConfig, SeverityFatal, "config error")
	reloadErr := New(CategoryReload, SeverityWarning, "reload error")
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match reload category", configErr, CategoryReload, false},
		{"reload error matches reload category", reloadErr, CategoryReload, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsCategory(test.err, test.category)
			if result != test.expected {
				t.Errorf("IsCategory() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	retryableErr := WrapRetryable(fmt.Errorf("timeout"), CategoryNetwork, SeverityWarning, "timeout")
	nonRetryableErr := New(CategoryConfig, SeverityFatal, "invalid")
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"retryable error", retryableErr, true},
		{"non-retryable error", nonRetryableErr, false},
		{"standard error", standardErr, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsRetryable(test.err)
			if result != test.expected {
				t.Errorf("IsRetryable() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestConvenienceFunctions(t *testing.T) {
	t.Run("ConfigNotFound", func(t *testing.T) {
		err := ConfigNotFound("/path/to/hotbuild.yaml")
		if err.Category != CategoryConfig {
			t.Errorf("Category = %v, want %v", err.Category, CategoryConfig)
		}
		if err.Severity != SeverityFatal {
			t.Errorf("Severity = %v, want %v", err.Severity, SeverityFatal)
		}
		if err.Context["path"] != "/path/to/hotbuild.yaml" {
			t.Errorf("Context[path] = %v, want /path/to/hotbuild.yaml", err.Context["path"])
		}
	})

	t.Run("StageFailed", func(t *testing.T) {
		cause := fmt.Errorf("copy failed")
		err := StageFailed("deploy", cause)
		if err.Category != CategoryBuild {
			t.Errorf("Category = %v, want %v", err.Category, CategoryBuild)
		}
		if err.Context["stage"] != "deploy" {
			t.Errorf("Context[stage] = %v, want deploy", err.Context["stage"])
		}
		if !stdErrors.Is(err, cause) {
			t.Errorf("Cause should match wrapped cause: %v", cause)
		}
	})

	t.Run("ReloadFailed", func(t *testing.T) {
		cause := fmt.Errorf("connection refused")
		err := ReloadFailed("garage", cause)
		if err.Category != CategoryReload {
			t.Errorf("Category = %v, want %v", err.Category, CategoryReload)
		}
		if !err.Retryable {
			t.Error("ReloadFailed should be retryable")
		}
		if !stdErrors.Is(err, cause) {
			t.Errorf("Cause should match wrapped cause: %v", cause)
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		err := Unauthorized()
		if err.Category != CategoryAuth {
			t.Errorf("Category = %v, want %v", err.Category, CategoryAuth)
		}
		if err.Message != "Unauthorized: Invalid API key" {
			t.Errorf("Message = %q", err.Message)
		}
	})
}
