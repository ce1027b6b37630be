package orchestrate

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseQueryDropsGenericTermsWhenSpecificPresent(t *testing.T) {
	got := parseQuery("the breast cancer study")
	want := []string{"breast", "cancer"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseQuery() = %v, want %v", got, want)
	}
}

func TestParseQueryKeepsGenericTermsWhenOnlyGeneric(t *testing.T) {
	got := parseQuery("the data analysis")
	want := []string{"the", "data", "analysis"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseQuery() = %v, want %v", got, want)
	}
}

func TestParseQueryEmpty(t *testing.T) {
	if got := parseQuery("   "); got != nil {
		t.Errorf("parseQuery(whitespace) = %v, want nil", got)
	}
}

func TestBuildProviderQueryExplicitAndJoinsPhrases(t *testing.T) {
	got := buildProviderQuery("dna methylation and HiC joint profiling datasets")
	want := `"dna methylation" AND "HiC joint profiling"`
	if got != want {
		t.Errorf("buildProviderQuery() = %q, want %q", got, want)
	}
}

func TestBuildProviderQueryTwoToThreeSpecificTermsUsesAnd(t *testing.T) {
	got := buildProviderQuery("breast cancer transcriptome")
	want := "breast AND cancer AND transcriptome"
	if got != want {
		t.Errorf("buildProviderQuery() = %q, want %q", got, want)
	}
}

func TestBuildProviderQueryManySpecificTermsUsesOr(t *testing.T) {
	got := buildProviderQuery("breast cancer transcriptome methylation profiling")
	want := "breast OR cancer OR transcriptome OR methylation OR profiling"
	if got != want {
		t.Errorf("buildProviderQuery() = %q, want %q", got, want)
	}
}

func TestBuildProviderQueryConjunctionMarkerWithManyTermsStillUsesAnd(t *testing.T) {
	got := buildProviderQuery("combined single cell multi omics atlas profiling")
	if !strings.Contains(got, " AND ") {
		t.Errorf("buildProviderQuery() = %q, want an AND-joined query due to the conjunction markers", got)
	}
}
