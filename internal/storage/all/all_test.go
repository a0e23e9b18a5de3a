package all

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"dataunifier/internal/storage"
)

func TestKinds(t *testing.T) {
	t.Parallel()

	want := []string{"mssql", "mysql", "postgres", "sqlite"}
	if diff := cmp.Diff(want, storage.Kinds()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
