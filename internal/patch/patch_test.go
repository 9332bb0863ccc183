package patch

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// =============================================================================
// Property-Based Tests
// =============================================================================

// genToken generates distinctive substitution tokens
func genToken() gopter.Gen {
	return gen.RegexMatch(`^[0-9a-f]{12}$`)
}

// genFiller generates surrounding text free of hex characters, so generated
// tokens can never collide with it
func genFiller() gopter.Gen {
	return gen.RegexMatch(`^[g-z :\n]{0,30}$`)
}

// TestBuildSubstitution tests Property: text outside the replaced spans is
// byte-identical, and replaced spans carry the new values
func TestBuildSubstitution(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("only the located spans change", prop.ForAll(
		func(prefix, oldA, newA, mid, oldB, newB, suffix string) bool {
			if oldA == oldB || oldA == newB || oldB == newA {
				return true
			}
			raw := prefix + oldA + mid + oldB + suffix
			p, err := Build(Request{
				Path:    "recipe/meta.yaml",
				Message: "bump",
				BlobSHA: "sha",
				Raw:     raw,
				Fields: map[string]Field{
					"version": {Old: oldA, New: newA},
					"sha256":  {Old: oldB, New: newB},
				},
			})
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}
			return p.Content == prefix+newA+mid+newB+suffix
		},
		genFiller(), genToken(), genToken(), genFiller(), genToken(), genToken(), genFiller(),
	))

	properties.Property("absent field is named and nothing is produced", prop.ForAll(
		func(present, absent string) bool {
			if present == absent {
				return true
			}
			raw := fmt.Sprintf("version: %s\n", present)
			_, err := Build(Request{
				Raw: raw,
				Fields: map[string]Field{
					"version": {Old: present, New: "x"},
					"sha256":  {Old: absent, New: "y"},
				},
			})
			var missing *MissingFieldError
			if !errors.As(err, &missing) {
				t.Logf("Expected MissingFieldError, got %v", err)
				return false
			}
			return missing.Field == "sha256"
		},
		genToken(), genToken(),
	))

	properties.TestingRun(t)
}

// =============================================================================
// Unit Tests
// =============================================================================

const rawRecipe = `{% set version = "1.2.0" %}

package:
  name: demo
  version: "{{ version }}"

source:
  fn: demo-{{ version }}.tar.gz
  sha256: aabbccdd
`

// TestBuildAppliesAllFields tests a two-field patch
func TestBuildAppliesAllFields(t *testing.T) {
	p, err := Build(Request{
		Path:    "recipe/meta.yaml",
		Message: "Tick version to 1.3.0",
		BlobSHA: "0ab1",
		Raw:     rawRecipe,
		Fields: map[string]Field{
			"version": {Old: "1.2.0", New: "1.3.0"},
			"sha256":  {Old: "aabbccdd", New: "eeff0011"},
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(p.Content, `{% set version = "1.3.0" %}`) {
		t.Errorf("Expected new version in content, got %q", p.Content)
	}
	if !strings.Contains(p.Content, "sha256: eeff0011") {
		t.Errorf("Expected new checksum in content, got %q", p.Content)
	}
	if strings.Contains(p.Content, "1.2.0") || strings.Contains(p.Content, "aabbccdd") {
		t.Error("Expected old values to be gone")
	}
}

// TestBuildReplacesEveryOccurrence tests that a repeated old value is
// replaced everywhere
func TestBuildReplacesEveryOccurrence(t *testing.T) {
	raw := "fn: demo-0.9.tar.gz\nurl: https://example.com/demo-0.9.tar.gz\n"

	p, err := Build(Request{
		Raw: raw,
		Fields: map[string]Field{
			"version": {Old: "0.9", New: "1.0"},
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Contains(p.Content, "0.9") {
		t.Errorf("Expected every occurrence replaced, got %q", p.Content)
	}
	if strings.Count(p.Content, "1.0") != 2 {
		t.Errorf("Expected two occurrences of the new value, got %q", p.Content)
	}
}

// TestBuildMissingField tests the failure diagnostic
func TestBuildMissingField(t *testing.T) {
	_, err := Build(Request{
		Raw: rawRecipe,
		Fields: map[string]Field{
			"version": {Old: "1.2.0", New: "1.3.0"},
			"md5":     {Old: "not-in-file", New: "x"},
		},
	})
	if err == nil {
		t.Fatal("Expected error for unlocatable field")
	}

	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingFieldError, got %T", err)
	}
	if missing.Field != "md5" {
		t.Errorf("Expected field 'md5', got %q", missing.Field)
	}
	if err.Error() != "current md5 value not found in recipe text" {
		t.Errorf("Unexpected error message %q", err.Error())
	}
}

// TestBuildFirstMissingInSortedOrder tests that the diagnostic names the
// first absent field in sorted name order
func TestBuildFirstMissingInSortedOrder(t *testing.T) {
	_, err := Build(Request{
		Raw: "nothing here\n",
		Fields: map[string]Field{
			"version": {Old: "absent-a", New: "x"},
			"sha256":  {Old: "absent-b", New: "y"},
		},
	})

	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingFieldError, got %T", err)
	}
	if missing.Field != "sha256" {
		t.Errorf("Expected 'sha256' (first in sorted order), got %q", missing.Field)
	}
}

// TestBuildCarriesIdentity tests that path, message and blob SHA pass through
func TestBuildCarriesIdentity(t *testing.T) {
	p, err := Build(Request{
		Path:    "recipe/meta.yaml",
		Message: "Tick version to 2.0",
		BlobSHA: "f00d",
		Raw:     "version: 1.0\n",
		Fields: map[string]Field{
			"version": {Old: "1.0", New: "2.0"},
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.Path != "recipe/meta.yaml" {
		t.Errorf("Expected path to pass through, got %q", p.Path)
	}
	if p.Message != "Tick version to 2.0" {
		t.Errorf("Expected message to pass through, got %q", p.Message)
	}
	if p.BlobSHA != "f00d" {
		t.Errorf("Expected blob SHA to pass through, got %q", p.BlobSHA)
	}
}

// TestBuildNoFields tests that an empty mapping returns the text unchanged
func TestBuildNoFields(t *testing.T) {
	p, err := Build(Request{Raw: rawRecipe})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.Content != rawRecipe {
		t.Error("Expected content unchanged for empty field mapping")
	}
}
