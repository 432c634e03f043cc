package filter

import (
	"errors"
	"net/url"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Joseda-hg/lazydesk/internal/apperr"
)

func TestParseExpression(t *testing.T) {
	got, err := ParseExpression("status=3&creator=current-user,7&archived=TRUE")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := ClauseSet{
		Scopes: map[string]Scope{
			"status":  {IDs: []int64{3}},
			"creator": {CurrentUser: true, IDs: []int64{7}},
		},
		Bools: map[string]bool{"archived": true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("clauses mismatch (-want +got):\n%s", diff)
	}

	creator, _ := got.Scope("creator")
	if ids := creator.Resolve(42); !slices.Equal(ids, []int64{42, 7}) {
		t.Fatalf("expected current-user to resolve to [42 7], got %v", ids)
	}
}

func TestParseSkipsEmptySegmentsAndMergesRepeats(t *testing.T) {
	got, err := ParseExpression("&status=1&&status=2,1&important=TRUE&important=FALSE&")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	status, _ := got.Scope("status")
	if !slices.Equal(status.IDs, []int64{1, 2}) {
		t.Fatalf("expected merged status ids [1 2], got %v", status.IDs)
	}
	if v, ok := got.Bool("important"); !ok || v {
		t.Fatalf("expected the last important value to win, got %v", v)
	}

	empty, err := ParseExpression("")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if !empty.Empty() {
		t.Fatalf("expected an empty clause set, got %+v", empty)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []struct {
		expression string
		key        string
	}{
		{"bogus=1", "bogus"},
		{"status=abc", "status"},
		{"status=", "status"},
		{"status=-4", "status"},
		{"tag=current-user", "tag"},
		{"creator=not", "creator"},
		{"project=not,3", "project"},
		{"project=not&project=3", "project"},
		{"archived=maybe", "archived"},
		{"archived=", "archived"},
		{"createdTime=yesterday", "createdTime"},
		{"createdTime=FROM=2024-03-02,TO=2024-03-01", "createdTime"},
		{"createdTime=FROM=1,FROM=2", "createdTime"},
		{"addedParameters=3", "addedParameters"},
		{"addedParameters=3=a,,b", "addedParameters"},
	}
	for _, tc := range cases {
		_, err := ParseExpression(tc.expression)
		if !errors.Is(err, apperr.ErrInvalidParameters) {
			t.Fatalf("%s: expected invalid parameters, got %v", tc.expression, err)
		}
		var invalid *apperr.InvalidParametersError
		if !errors.As(err, &invalid) || invalid.Key != tc.key {
			t.Fatalf("%s: expected key %q, got %v", tc.expression, tc.key, err)
		}
	}
}

func TestParseDateRanges(t *testing.T) {
	got, err := ParseExpression("createdTime=FROM=2024-03-01,TO=NOW&closedTime=TO=1709251200")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	created := got.Dates["createdTime"]
	if created.From == nil || !created.From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected FROM %v", created.From)
	}
	if !created.ToNow || created.To != nil {
		t.Fatalf("expected TO=NOW, got %+v", created)
	}

	now := time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)
	_, to := created.Bounds(now)
	if to == nil || !to.Equal(now) {
		t.Fatalf("expected TO bound to be now, got %v", to)
	}

	closed := got.Dates["closedTime"]
	if closed.From != nil || closed.To == nil || closed.To.Unix() != 1709251200 {
		t.Fatalf("unexpected closedTime %+v", closed)
	}
}

func TestParseAddedParameters(t *testing.T) {
	got, err := ParseExpression("addedParameters=5=a,b&addedParameters=5=c,a&addedParameters=2=x")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []AttributeValues{
		{AttributeID: 5, Values: []string{"a", "b", "c"}},
		{AttributeID: 2, Values: []string{"x"}},
	}
	if diff := cmp.Diff(want, got.Attributes); diff != "" {
		t.Fatalf("attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatIsCanonical(t *testing.T) {
	got, err := ParseExpression("archived=true&creator=7,current-user&status=3&search=printer")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	formatted := Tasks.Format(got)
	want := "status=3&creator=current-user,7&archived=TRUE&search=printer"
	if formatted != want {
		t.Fatalf("expected %q, got %q", want, formatted)
	}

	again, err := ParseExpression(formatted)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if Tasks.Format(again) != formatted {
		t.Fatalf("format is not stable: %q", Tasks.Format(again))
	}
}

func TestSearchTextRoundTrips(t *testing.T) {
	got, err := Tasks.ParseParams(url.Values{"search": {"printer=broken, again"}})
	if err != nil {
		t.Fatalf("parse params: %v", err)
	}
	formatted := Tasks.Format(got)
	if formatted != "search=printer=broken, again" {
		t.Fatalf("unexpected format %q", formatted)
	}
	again, err := ParseExpression(formatted)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if diff := cmp.Diff(got, again); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = Tasks.ParseParams(url.Values{"search": {"R&D, printer=broken"}})
	var invalid *apperr.InvalidParametersError
	if !errors.As(err, &invalid) || invalid.Key != "search" {
		t.Fatalf("expected search with & to be rejected, got %v", err)
	}
}

func TestParseParams(t *testing.T) {
	values := url.Values{
		"status":          {"1,2"},
		"assigned":        {"not"},
		"addedParameters": {"3=a,b&5=c"},
		"order":           {"id:DESC"},
		"limit":           {"20"},
	}
	got, err := Tasks.ParseParams(values)
	if err != nil {
		t.Fatalf("parse params: %v", err)
	}
	want := ClauseSet{
		Scopes: map[string]Scope{
			"status":   {IDs: []int64{1, 2}},
			"assigned": {None: true},
		},
		Attributes: []AttributeValues{
			{AttributeID: 3, Values: []string{"a", "b"}},
			{AttributeID: 5, Values: []string{"c"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("clauses mismatch (-want +got):\n%s", diff)
	}

	_, err = Tasks.ParseParams(url.Values{"zeta": {"1"}, "alpha": {"2"}})
	var invalid *apperr.InvalidParametersError
	if !errors.As(err, &invalid) || invalid.Key != "alpha" {
		t.Fatalf("expected the first unknown key in order, got %v", err)
	}
}

func TestFiltersRegistryKeys(t *testing.T) {
	got, err := Filters.ParseParams(url.Values{"public": {"TRUE"}, "project": {"current-user"}})
	if err != nil {
		t.Fatalf("parse params: %v", err)
	}
	if v, ok := got.Bool("public"); !ok || !v {
		t.Fatalf("expected public=TRUE, got %+v", got)
	}
	if s, ok := got.Scope("project"); !ok || !s.CurrentUser {
		t.Fatalf("expected project=current-user, got %+v", got)
	}

	if _, err := Filters.ParseParams(url.Values{"status": {"1"}}); !errors.Is(err, apperr.ErrInvalidParameters) {
		t.Fatalf("expected status to be unknown for filters, got %v", err)
	}
}
