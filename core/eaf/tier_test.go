package eaf

import (
	"errors"
	"testing"

	cerrors "github.com/tierline/elan/core/errors"
)

func TestNewTier(t *testing.T) {
	defaultType := DefaultTierType()

	tests := []struct {
		name     string
		tierName string
		tierType *TierType
		wantErr  bool
	}{
		{"valid", "speaker", defaultType, false},
		{"empty name", "", defaultType, true},
		{"nil type", "speaker", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTier(tt.tierName, "P1", "ann", tt.tierType)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.tierName || got.Participant != "P1" || got.Annotator != "ann" {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestNewSubtier(t *testing.T) {
	parent := DefaultTier("speaker")

	subtier, err := NewSubtier("translation", "", "", DefaultTierType(), parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subtier.Parent != "speaker" {
		t.Errorf("Parent = %q, want %q", subtier.Parent, "speaker")
	}

	if _, err := NewSubtier("translation", "", "", DefaultTierType(), nil); err == nil {
		t.Error("nil parent should be rejected")
	}
}

func TestTierFromTagVariants(t *testing.T) {
	defaultType := DefaultTierType()
	flat := parseElement(t, `<TIER LINGUISTIC_TYPE_REF="default-lt" PARTICIPANT="A" TIER_ID="speaker"/>`)
	nested := parseElement(t, `<TIER LINGUISTIC_TYPE_REF="default-lt" PARENT_REF="speaker" TIER_ID="translation"/>`)

	t.Run("flat element parses as tier", func(t *testing.T) {
		tier, err := TierFromTag(flat, defaultType)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tier.Name != "speaker" || tier.Participant != "A" {
			t.Errorf("got %+v", tier)
		}
	})

	t.Run("nested element rejected by tier constructor", func(t *testing.T) {
		_, err := TierFromTag(nested, defaultType)
		if !errors.Is(err, ErrWrongVariant) {
			t.Errorf("want ErrWrongVariant, got %v", err)
		}
	})

	t.Run("nested element parses as subtier", func(t *testing.T) {
		parent := DefaultTier("speaker")
		subtier, err := SubtierFromTag(nested, defaultType, parent)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if subtier.Name != "translation" || subtier.Parent != "speaker" {
			t.Errorf("got %+v", subtier)
		}
	})

	t.Run("flat element rejected by subtier constructor", func(t *testing.T) {
		_, err := SubtierFromTag(flat, defaultType, DefaultTier("speaker"))
		if !errors.Is(err, ErrWrongVariant) {
			t.Errorf("want ErrWrongVariant, got %v", err)
		}
	})

	t.Run("missing tier id is a format error", func(t *testing.T) {
		bad := parseElement(t, `<TIER LINGUISTIC_TYPE_REF="default-lt"/>`)
		_, err := TierFromTag(bad, defaultType)
		if !errors.Is(err, cerrors.ErrFormat) {
			t.Errorf("want ErrFormat, got %v", err)
		}
	})
}

func TestTierToTag(t *testing.T) {
	t.Run("optional attributes omitted when empty", func(t *testing.T) {
		tag := DefaultTier("speaker").ToTag()
		if tag.HasAttr("PARTICIPANT") || tag.HasAttr("ANNOTATOR") {
			t.Error("empty participant/annotator must be omitted, not written empty")
		}
		if got := tag.Attr("TIER_ID"); got != "speaker" {
			t.Errorf("TIER_ID = %q", got)
		}
		if got := tag.Attr("LINGUISTIC_TYPE_REF"); got != DefaultTypeName {
			t.Errorf("LINGUISTIC_TYPE_REF = %q", got)
		}
	})

	t.Run("subtier adds parent reference", func(t *testing.T) {
		subtier, err := NewSubtier("translation", "B", "", DefaultTierType(), DefaultTier("speaker"))
		if err != nil {
			t.Fatalf("NewSubtier: %v", err)
		}
		tag := subtier.ToTag()
		if got := tag.Attr("PARENT_REF"); got != "speaker" {
			t.Errorf("PARENT_REF = %q, want %q", got, "speaker")
		}
		if got := tag.Attr("PARTICIPANT"); got != "B" {
			t.Errorf("PARTICIPANT = %q, want %q", got, "B")
		}
	})
}
