package eaf

import (
	"errors"
	"testing"

	cerrors "github.com/tierline/elan/core/errors"
	"github.com/tierline/elan/core/xml"
)

func TestStereotypeValid(t *testing.T) {
	tests := []struct {
		stereotype Stereotype
		want       bool
	}{
		{StereotypeNone, true},
		{StereotypeTimeSubdivision, true},
		{StereotypeSymbolicSubdivision, true},
		{StereotypeSymbolicAssociation, true},
		{StereotypeIncludedIn, true},
		{Stereotype(""), false},
		{Stereotype("time_subdivision"), false},
		{Stereotype("Bogus"), false},
	}

	for _, tt := range tests {
		if got := tt.stereotype.Valid(); got != tt.want {
			t.Errorf("Stereotype(%q).Valid() = %v, want %v", tt.stereotype, got, tt.want)
		}
	}
}

func TestStereotypeTimeAlignable(t *testing.T) {
	alignable := map[Stereotype]bool{
		StereotypeNone:                true,
		StereotypeTimeSubdivision:     true,
		StereotypeSymbolicSubdivision: false,
		StereotypeSymbolicAssociation: false,
		StereotypeIncludedIn:          false,
	}

	for stereotype, want := range alignable {
		if got := stereotype.TimeAlignable(); got != want {
			t.Errorf("Stereotype(%q).TimeAlignable() = %v, want %v", stereotype, got, want)
		}
	}
}

func TestNewTierType(t *testing.T) {
	tests := []struct {
		name       string
		typeName   string
		stereotype Stereotype
		wantErr    bool
	}{
		{"valid with none", "words", StereotypeNone, false},
		{"valid with constraint", "phones", StereotypeTimeSubdivision, false},
		{"empty name", "", StereotypeNone, true},
		{"unknown stereotype", "words", Stereotype("Nope"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTierType(tt.typeName, tt.stereotype)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, cerrors.ErrInvalidInput) {
					t.Errorf("error should unwrap to ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.typeName || got.Stereotype != tt.stereotype {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestTierTypeFromTag(t *testing.T) {
	tests := []struct {
		name           string
		source         string
		wantName       string
		wantStereotype Stereotype
		wantErr        bool
	}{
		{
			name:           "no constraints means none",
			source:         `<LINGUISTIC_TYPE LINGUISTIC_TYPE_ID="default-lt" TIME_ALIGNABLE="true"/>`,
			wantName:       "default-lt",
			wantStereotype: StereotypeNone,
		},
		{
			name:           "constraints attribute carries the stereotype",
			source:         `<LINGUISTIC_TYPE CONSTRAINTS="Included_In" LINGUISTIC_TYPE_ID="inc" TIME_ALIGNABLE="false"/>`,
			wantName:       "inc",
			wantStereotype: StereotypeIncludedIn,
		},
		{
			name:    "wrong element",
			source:  `<TIER TIER_ID="x"/>`,
			wantErr: true,
		},
		{
			name:    "missing id",
			source:  `<LINGUISTIC_TYPE TIME_ALIGNABLE="true"/>`,
			wantErr: true,
		},
		{
			name:    "unknown constraints value",
			source:  `<LINGUISTIC_TYPE CONSTRAINTS="Made_Up" LINGUISTIC_TYPE_ID="x"/>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag := parseElement(t, tt.source)
			got, err := TierTypeFromTag(tag)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, cerrors.ErrFormat) {
					t.Errorf("error should unwrap to ErrFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.wantName || got.Stereotype != tt.wantStereotype {
				t.Errorf("got %+v, want {%s %s}", got, tt.wantName, tt.wantStereotype)
			}
		})
	}
}

func TestTierTypeRoundTrip(t *testing.T) {
	for _, stereotype := range []Stereotype{
		StereotypeNone,
		StereotypeTimeSubdivision,
		StereotypeSymbolicSubdivision,
		StereotypeSymbolicAssociation,
		StereotypeIncludedIn,
	} {
		t.Run(string(stereotype), func(t *testing.T) {
			original := &TierType{Name: "rt", Stereotype: stereotype}
			tag := original.ToTag()

			wantAlignable := "false"
			if stereotype.TimeAlignable() {
				wantAlignable = "true"
			}
			if got := tag.Attr("TIME_ALIGNABLE"); got != wantAlignable {
				t.Errorf("TIME_ALIGNABLE = %q, want %q", got, wantAlignable)
			}
			if stereotype == StereotypeNone && tag.HasAttr("CONSTRAINTS") {
				t.Error("None stereotype must not emit a CONSTRAINTS attribute")
			}

			recovered, err := TierTypeFromTag(tag)
			if err != nil {
				t.Fatalf("TierTypeFromTag: %v", err)
			}
			if *recovered != *original {
				t.Errorf("round trip changed type: got %+v, want %+v", recovered, original)
			}
		})
	}
}

// parseElement parses a single-element XML fragment for tag tests.
func parseElement(t *testing.T, source string) *xml.Node {
	t.Helper()
	doc, err := xml.Parse([]byte(source))
	if err != nil {
		t.Fatalf("parsing fragment: %v", err)
	}
	root := doc.Root()
	if root == nil {
		t.Fatal("fragment has no root element")
	}
	return root
}
