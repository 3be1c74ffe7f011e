package audit

import "fmt"

// ValidationError marks client input the engine refuses to audit.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError marks a package or version missing from the registry.
type NotFoundError struct {
	Name    string
	Version string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("package %s@%s not found", e.Name, e.Version)
	}
	return fmt.Sprintf("package %s not found", e.Name)
}

// UnavailableError marks an upstream the audit cannot proceed without.
type UnavailableError struct {
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
