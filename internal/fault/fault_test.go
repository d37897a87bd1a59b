package fault

import (
	"errors"
	"testing"
)

func TestWrappersPreserveKind(t *testing.T) {
	if !errors.Is(Validation("missing service_type"), ErrValidation) {
		t.Fatalf("validation kind lost")
	}
	if !errors.Is(Ambiguous("2 matches"), ErrAmbiguous) {
		t.Fatalf("ambiguity kind lost")
	}
	cause := errors.New("boom")
	err := External("calendar", cause)
	if !errors.Is(err, ErrExternal) {
		t.Fatalf("external kind lost")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost")
	}
}
