package catalog

import "testing"

func TestSortSpec_Validate(t *testing.T) {
	tests := []struct {
		name        string
		spec        SortSpec
		expectError bool
	}{
		{name: "title ascending", spec: SortSpec{Field: SortByTitle, Direction: Ascending}},
		{name: "year descending", spec: SortSpec{Field: SortByYear, Direction: Descending}},
		{name: "unknown field", spec: SortSpec{Field: "author", Direction: Ascending}, expectError: true},
		{name: "unknown direction", spec: SortSpec{Field: SortByTitle, Direction: "up"}, expectError: true},
		{name: "empty spec", spec: SortSpec{}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewComparer_InvalidInput(t *testing.T) {
	if _, err := NewComparer(SortSpec{Field: "isbn", Direction: Ascending}, ""); err == nil {
		t.Error("expected error for unknown sort field")
	}
	if _, err := NewComparer(SortSpec{Field: SortByTitle, Direction: Ascending}, "no-such-locale!"); err == nil {
		t.Error("expected error for unparseable locale")
	}
}

func TestComparer_Title(t *testing.T) {
	cmp, err := NewComparer(SortSpec{Field: SortByTitle, Direction: Ascending}, "")
	if err != nil {
		t.Fatalf("NewComparer() error = %v", err)
	}

	tests := []struct {
		name string
		a, b string
		want int // sign only
	}{
		{name: "plain ascending", a: "Annihilation", b: "Borne", want: -1},
		{name: "case-insensitive", a: "annihilation", b: "Annihilation", want: 0},
		{name: "reverse order", a: "Borne", b: "Annihilation", want: 1},
		{name: "accented before later letter", a: "Éclair", b: "Zebra", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cmp.Compare(Holding{Title: tt.a}, Holding{Title: tt.b})
			if sign(got) != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want sign %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestComparer_YearAndDirection(t *testing.T) {
	older := Holding{Title: "B", Year: 1961}
	newer := Holding{Title: "A", Year: 2014}

	asc, err := NewComparer(SortSpec{Field: SortByYear, Direction: Ascending}, "")
	if err != nil {
		t.Fatalf("NewComparer() error = %v", err)
	}
	desc, err := NewComparer(SortSpec{Field: SortByYear, Direction: Descending}, "")
	if err != nil {
		t.Fatalf("NewComparer() error = %v", err)
	}

	if got := asc.Compare(older, newer); sign(got) != -1 {
		t.Errorf("ascending: Compare(1961, 2014) = %d, want negative", got)
	}
	if got := desc.Compare(older, newer); sign(got) != 1 {
		t.Errorf("descending: Compare(1961, 2014) = %d, want positive", got)
	}
	if got := asc.Compare(older, older); got != 0 {
		t.Errorf("equal years: Compare() = %d, want 0", got)
	}
}

func TestComparer_DescendingTitle(t *testing.T) {
	cmp, err := NewComparer(SortSpec{Field: SortByTitle, Direction: Descending}, "en")
	if err != nil {
		t.Fatalf("NewComparer() error = %v", err)
	}
	if got := cmp.Compare(Holding{Title: "Annihilation"}, Holding{Title: "Borne"}); sign(got) != 1 {
		t.Errorf("descending title: Compare() = %d, want positive", got)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
