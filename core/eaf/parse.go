package eaf

import (
	"strings"

	cerrors "github.com/tierline/elan/core/errors"
	"github.com/tierline/elan/core/xml"
)

// fromTree builds the in-memory model from a parsed EAF tree. Tiers are
// resolved in two passes: flat tiers first, so the name index exists, then
// subtiers against it. Subtiers may themselves parent other subtiers, so
// the second pass iterates to a fixed point.
func fromTree(tree *xml.Document, path string) (*Document, error) {
	root := tree.Root()
	if root == nil || root.Name() != "ANNOTATION_DOCUMENT" {
		return nil, cerrors.NewFormat("EAF", path, "missing ANNOTATION_DOCUMENT root element")
	}

	doc := &Document{
		path:     path,
		author:   root.Attr("AUTHOR"),
		date:     root.Attr("DATE"),
		tiers:    make(map[string]*Tier),
		subtiers: make(map[string]*Subtier),
		types:    make(map[string]*TierType),
	}

	types, err := typeCatalog(tree, path)
	if err != nil {
		return nil, err
	}

	tierNodes, err := tree.XPath("//TIER")
	if err != nil {
		return nil, err
	}

	// First pass: flat tiers.
	var pending []*xml.Node
	for _, node := range tierNodes {
		if node.HasAttr("PARENT_REF") {
			pending = append(pending, node)
			continue
		}

		tierType, err := resolveTierType(types, node, path)
		if err != nil {
			return nil, err
		}
		tier, err := TierFromTag(node, tierType)
		if err != nil {
			return nil, err
		}
		doc.tiers[tier.Name] = tier
		doc.types[tierType.Name] = tierType
	}

	// Second pass: subtiers, iterated until no parent reference resolves
	// further. Order in the file does not constrain nesting order.
	for len(pending) > 0 {
		progressed := false
		var unresolved []*xml.Node

		for _, node := range pending {
			parent, ok := doc.Tier(node.Attr("PARENT_REF"))
			if !ok {
				unresolved = append(unresolved, node)
				continue
			}

			tierType, err := resolveTierType(types, node, path)
			if err != nil {
				return nil, err
			}
			subtier, err := SubtierFromTag(node, tierType, parent)
			if err != nil {
				return nil, err
			}
			doc.subtiers[subtier.Name] = subtier
			doc.types[tierType.Name] = tierType
			progressed = true
		}

		if !progressed {
			names := make([]string, 0, len(unresolved))
			for _, node := range unresolved {
				names = append(names, node.Attr("TIER_ID"))
			}
			return nil, cerrors.NewFormat("EAF", path,
				"tiers reference parents that do not exist: "+strings.Join(names, ", "))
		}
		pending = unresolved
	}

	store, err := storeFromTree(tree, path)
	if err != nil {
		return nil, err
	}
	doc.store = store

	audio, err := audioFromTree(tree)
	if err != nil {
		return nil, err
	}
	doc.audio = audio

	return doc, nil
}

// typeCatalog collects every LINGUISTIC_TYPE declaration, keyed by id.
func typeCatalog(tree *xml.Document, path string) (map[string]*TierType, error) {
	nodes, err := tree.XPath("//LINGUISTIC_TYPE")
	if err != nil {
		return nil, err
	}

	types := make(map[string]*TierType, len(nodes))
	for _, node := range nodes {
		tierType, err := TierTypeFromTag(node)
		if err != nil {
			var formatErr *cerrors.FormatError
			if cerrors.As(err, &formatErr) {
				formatErr.Path = path
			}
			return nil, err
		}
		types[tierType.Name] = tierType
	}
	return types, nil
}

// resolveTierType maps a TIER node's LINGUISTIC_TYPE_REF through the type
// catalog. A dangling reference is a structural defect of the file.
func resolveTierType(types map[string]*TierType, tierNode *xml.Node, path string) (*TierType, error) {
	ref := tierNode.Attr("LINGUISTIC_TYPE_REF")
	tierType, ok := types[ref]
	if !ok {
		return nil, &cerrors.FormatError{
			Format:  "EAF",
			Path:    path,
			Message: "tier " + tierNode.Attr("TIER_ID") + " references undeclared linguistic type " + ref,
			Err:     cerrors.NewNotFound("linguistic type", ref),
		}
	}
	return tierType, nil
}

// audioFromTree extracts the linked audio path, if any. Absence of a
// media descriptor is an ordinary state, not an error. The MEDIA_URL is
// stored as a file URI; both the "file://" and bare "file:" spellings
// occur in the wild.
func audioFromTree(tree *xml.Document) (string, error) {
	descriptor, err := tree.XPathFirst("//HEADER/MEDIA_DESCRIPTOR")
	if err != nil {
		return "", err
	}
	if descriptor == nil {
		descriptor, err = tree.XPathFirst("//*[@MEDIA_URL]")
		if err != nil || descriptor == nil {
			return "", err
		}
	}

	url := descriptor.Attr("MEDIA_URL")
	if after, ok := strings.CutPrefix(url, "file://"); ok {
		return after, nil
	}
	if after, ok := strings.CutPrefix(url, "file:"); ok {
		return after, nil
	}
	return url, nil
}
