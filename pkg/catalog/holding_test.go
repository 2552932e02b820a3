package catalog

import "testing"

func TestHolding_Key(t *testing.T) {
	tests := []struct {
		name string
		a    Holding
		b    Holding
		same bool
	}{
		{
			name: "identical title and year",
			a:    Holding{Title: "Solaris", Year: 1961},
			b:    Holding{Title: "Solaris", Year: 1961},
			same: true,
		},
		{
			name: "case and whitespace ignored",
			a:    Holding{Title: "  Solaris ", Year: 1961},
			b:    Holding{Title: "solaris", Year: 1961},
			same: true,
		},
		{
			name: "different year",
			a:    Holding{Title: "Solaris", Year: 1961},
			b:    Holding{Title: "Solaris", Year: 1970},
			same: false,
		},
		{
			name: "different title",
			a:    Holding{Title: "Solaris", Year: 1961},
			b:    Holding{Title: "Fiasco", Year: 1961},
			same: false,
		},
		{
			name: "descriptive fields do not affect identity",
			a:    Holding{Title: "Solaris", Author: "Lem", Year: 1961, Copies: 2},
			b:    Holding{Title: "Solaris", Author: "S. Lem", Year: 1961, Copies: 7},
			same: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Key() == tt.b.Key(); got != tt.same {
				t.Errorf("Key() equality = %v, want %v (%q vs %q)", got, tt.same, tt.a.Key(), tt.b.Key())
			}
		})
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestFilter_Matches(t *testing.T) {
	holding := Holding{Title: "Solaris", Author: "Stanislaw Lem", Language: "pl", Year: 1961}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty filter matches", filter: Filter{}, want: true},
		{name: "author match case-insensitive", filter: Filter{Author: strPtr("stanislaw lem")}, want: true},
		{name: "author mismatch", filter: Filter{Author: strPtr("Borges")}, want: false},
		{name: "language match", filter: Filter{Language: strPtr("PL")}, want: true},
		{name: "year range inclusive", filter: Filter{YearFrom: intPtr(1961), YearTo: intPtr(1961)}, want: true},
		{name: "year below range", filter: Filter{YearFrom: intPtr(1970)}, want: false},
		{name: "year above range", filter: Filter{YearTo: intPtr(1950)}, want: false},
		{
			name:   "all constraints combined",
			filter: Filter{Author: strPtr("Stanislaw Lem"), Language: strPtr("pl"), YearFrom: intPtr(1900), YearTo: intPtr(2000)},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(holding); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_IsZero(t *testing.T) {
	if !(Filter{}).IsZero() {
		t.Error("empty filter should be zero")
	}
	if (Filter{Author: strPtr("Lem")}).IsZero() {
		t.Error("filter with author should not be zero")
	}
}
