package patch

import "fmt"

// ValidatePatchOperations rejects ops outside add/replace/remove/test and, when
// allowedPaths is non-empty, ops on any other path.
func ValidatePatchOperations(ops []Operation, allowedPaths map[string]bool) error {
	for i, op := range ops {
		switch op.Op {
		case OperationAdd, OperationReplace, OperationRemove, OperationTest:
		default:
			return fmt.Errorf("operation %d: unsupported op %q", i, op.Op)
		}
		if len(allowedPaths) > 0 && !allowedPaths[op.Path] {
			return fmt.Errorf("operation %d: path %q is not a form field", i, op.Path)
		}
	}
	return nil
}
