package transformer

import "dataunifier/internal/errs"

// CheckFields verifies that every required field of the task (kind, name)
// is present in the resulting schema of prev. It succeeds when there is no
// predecessor or the predecessor's schema is unknown. file names the
// configuration file the task was declared in.
func CheckFields(kind, name string, prev Task, file string, required ...string) error {
	if prev == nil {
		return nil
	}
	schema := prev.Fields()
	if !schema.Known() {
		return nil
	}
	for _, f := range required {
		if !schema.Has(f) {
			return errs.Configf(`Field "%s" is expected by %s task "%s", but was not found in resulting fields of preceding %s task "%s". (File "%s")`,
				f, kind, name, prev.Kind(), prev.Name(), file)
		}
	}
	return nil
}
