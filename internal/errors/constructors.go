package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *HotbuildError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(field, reason string) *HotbuildError {
	return New(CategoryConfig, SeverityFatal, "configuration invalid").
		WithContext("field", field).
		WithContext("reason", reason)
}

func ValidationFailed(field, reason string) *HotbuildError {
	return New(CategoryValidation, SeverityWarning, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Build pipeline errors

func StageFailed(stage string, cause error) *HotbuildError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "pipeline stage failed").
		WithContext("stage", stage)
}

func CompileFailed(plugin string, cause error) *HotbuildError {
	return Wrap(cause, CategoryCompile, SeverityError, "plugin compilation failed").
		WithContext("plugin", plugin)
}

func ManifestInvalid(path string, cause error) *HotbuildError {
	return Wrap(cause, CategoryValidation, SeverityWarning, "resource manifest invalid").
		WithContext("path", path)
}

// Deploy and reload errors

func DeployFailed(target string, cause error) *HotbuildError {
	return Wrap(cause, CategoryDeploy, SeverityFatal, "deploy to resource root failed").
		WithContext("target", target)
}

func ReloadFailed(resource string, cause error) *HotbuildError {
	return WrapRetryable(cause, CategoryReload, SeverityWarning, "resource reload failed").
		WithContext("resource", resource)
}

// Watcher and filesystem errors

func WatchSetupFailed(root string, cause error) *HotbuildError {
	return Wrap(cause, CategoryWatch, SeverityFatal, "filesystem watch setup failed").
		WithContext("root", root)
}

func FileSystemError(operation string, cause error) *HotbuildError {
	return Wrap(cause, CategoryFileSystem, SeverityError, "filesystem operation failed").
		WithContext("operation", operation)
}

// Control-plane errors

func Unauthorized() *HotbuildError {
	return New(CategoryAuth, SeverityWarning, "Unauthorized: Invalid API key")
}

func NetworkError(operation string, cause error) *HotbuildError {
	return WrapRetryable(cause, CategoryNetwork, SeverityWarning, "network operation failed").
		WithContext("operation", operation)
}

// Daemon errors

func DaemonError(message string) *HotbuildError {
	return New(CategoryDaemon, SeverityError, message)
}
