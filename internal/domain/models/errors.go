package models

import "fmt"

// SchemaError reports malformed or missing input fields. It is fatal: the
// run aborts before any statistic is computed.
type SchemaError struct {
	Snapshot string
	Field    string
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema error in %s: field %q %s", e.Snapshot, e.Field, e.Reason)
	}
	return fmt.Sprintf("schema error in %s: %s", e.Snapshot, e.Reason)
}

// NewSchemaError creates a schema error for a snapshot field.
func NewSchemaError(snapshot, field, reason string) *SchemaError {
	return &SchemaError{Snapshot: snapshot, Field: field, Reason: reason}
}

// ModelContractError reports a prediction output violating the declared
// contract. Fatal for the affected model version only; other models in the
// suite keep evaluating.
type ModelContractError struct {
	ModelID string
	Reason  string
	Err     error
}

func (e *ModelContractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %s violated contract: %s: %v", e.ModelID, e.Reason, e.Err)
	}
	return fmt.Sprintf("model %s violated contract: %s", e.ModelID, e.Reason)
}

func (e *ModelContractError) Unwrap() error { return e.Err }

// NewModelContractError creates a contract violation for a model.
func NewModelContractError(modelID, reason string, err error) *ModelContractError {
	return &ModelContractError{ModelID: modelID, Reason: reason, Err: err}
}

// ExternalDependencyError reports an exhausted retry loop against an
// external input (macro data, benchmark study). The run proceeds with the
// input marked unavailable and dependent checks marked skipped.
type ExternalDependencyError struct {
	Source   string
	Attempts int
	Err      error
}

func (e *ExternalDependencyError) Error() string {
	return fmt.Sprintf("external dependency %s unavailable after %d attempts: %v", e.Source, e.Attempts, e.Err)
}

func (e *ExternalDependencyError) Unwrap() error { return e.Err }
