package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferTestOutcomeParsesFullReport(t *testing.T) {
	text := `I ran the suite myself.

Test status: failed
Failed tests: checkout_spec.ts, cart_spec.ts
Repro steps: run yarn test --filter checkout
Suspected root cause: the discount code is applied twice on retry

That's everything.`

	status, report, ok := inferTestOutcome(text)
	require.True(t, ok)
	assert.Equal(t, "failed", status)
	assert.Equal(t, []string{"checkout_spec.ts", "cart_spec.ts"}, report.FailedTests)
	assert.Equal(t, []string{"run yarn test --filter checkout"}, report.ReproSteps)
	assert.Equal(t, "the discount code is applied twice on retry", report.SuspectedRootCause)
	assert.NotEmpty(t, report.Notes)
}

func TestInferTestOutcomePassed(t *testing.T) {
	status, report, ok := inferTestOutcome("All good here.\nTest status: passed\n")
	require.True(t, ok)
	assert.Equal(t, "passed", status)
	assert.Empty(t, report.FailedTests)
}

func TestInferTestOutcomeNoStatusLine(t *testing.T) {
	_, _, ok := inferTestOutcome("I implemented the feature and it looks good.")
	assert.False(t, ok)
}

func TestInferTestOutcomeCaseInsensitive(t *testing.T) {
	status, _, ok := inferTestOutcome("TEST STATUS: FAILED\n")
	require.True(t, ok)
	assert.Equal(t, "failed", status)
}

func TestInferTestOutcomeHarvestsFailureSnippetsWithoutExplicitLine(t *testing.T) {
	text := `Test status: failed

Ran the suite, output below:
PASS src/utils.test.ts
FAIL src/checkout.test.ts
  TypeError: cannot read properties of undefined
  at checkout (src/checkout.ts:42)
Error TS2345: argument of type 'string' is not assignable
test run timed out after 30000ms
`

	status, report, ok := inferTestOutcome(text)
	require.True(t, ok)
	assert.Equal(t, "failed", status)
	assert.NotEmpty(t, report.FailedTests)
	assert.Contains(t, report.FailedTests, "FAIL src/checkout.test.ts")
	assert.Contains(t, report.FailedTests, "Error TS2345: argument of type 'string' is not assignable")
	assert.Contains(t, report.FailedTests, "test run timed out after 30000ms")
	assert.NotContains(t, report.FailedTests, "PASS src/utils.test.ts")
}
