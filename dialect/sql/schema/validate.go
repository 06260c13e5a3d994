package schema

// Input validation for the statement generator. All checks run before
// any statement text is produced, so a failing call has no output.

// validateColumns rejects duplicate column names in a fragment list.
func validateColumns(columns []Fragment) error {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c.Name == "" {
			return parameterErrorf("column requires a name")
		}
		if _, ok := seen[c.Name]; ok {
			return parameterErrorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// validateRoutine checks the required fields of a routine definition.
// All four are reported together so the caller sees the expected set.
func validateRoutine(r Routine) error {
	if r.Name == "" || r.Returns == "" || r.Language == "" || r.Body == "" {
		return parameterErrorf("createFunction missing some parameters. Did you pass functionName, returnType, language and body?")
	}
	return nil
}
