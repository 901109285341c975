package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden runs s, reports failed expectations and compares the
// rendered transcript with testdata/golden/<s.Name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) error {
	t.Helper()

	res, err := Run(context.Background(), s)
	if err != nil {
		return err
	}
	for _, msg := range Check(res, s.Expect) {
		t.Errorf("%s: %s", s.Name, msg)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, res.Render(s.Name))
	return nil
}
