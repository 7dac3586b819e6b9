package navigation

import (
	"fmt"
	"sort"

	"catalog-manager/feature/catalog/models"

	"gorm.io/gorm"
)

// GroupView is a variant group as the navigation layer sees it: its member
// ids, the attribute values all members share, and its price range.
type GroupView struct {
	ID        uint
	Slug      string
	Name      string
	Images    []string
	MemberIDs []uint

	// Shared maps type slug to the value every member carries.
	Shared map[string]string

	PriceMin float64
	PriceMax float64
}

// BuildGroupViews loads the product's active groups and derives shared
// attributes and price ranges from the relation's variant nodes.
func BuildGroupViews(db *gorm.DB, rel *Relation) ([]GroupView, error) {
	var groups []models.VariantGroup
	err := db.Where("product_id = ? AND active = ?", rel.ProductID, true).
		Preload("Members").
		Order("id asc").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}

	byID := make(map[uint]*VariantNode, len(rel.Variants))
	for i := range rel.Variants {
		byID[rel.Variants[i].ID] = &rel.Variants[i]
	}

	views := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		view := GroupView{
			ID:     g.ID,
			Slug:   g.Slug,
			Name:   g.Name,
			Images: g.Images,
		}

		members := append([]models.VariantGroupMember(nil), g.Members...)
		sort.Slice(members, func(i, j int) bool { return members[i].Position < members[j].Position })

		var nodes []*VariantNode
		for _, m := range members {
			node, ok := byID[m.VariantID]
			if !ok {
				continue // member retired since the group was saved
			}
			view.MemberIDs = append(view.MemberIDs, m.VariantID)
			nodes = append(nodes, node)
		}
		if len(nodes) == 0 {
			continue
		}

		view.Shared = sharedSelection(nodes)
		view.PriceMin, view.PriceMax = nodes[0].SalePrice, nodes[0].SalePrice
		for _, n := range nodes[1:] {
			if n.SalePrice < view.PriceMin {
				view.PriceMin = n.SalePrice
			}
			if n.SalePrice > view.PriceMax {
				view.PriceMax = n.SalePrice
			}
		}

		views = append(views, view)
	}

	return views, nil
}

// sharedSelection returns the attribute values common to every node.
func sharedSelection(nodes []*VariantNode) map[string]string {
	shared := make(map[string]string, len(nodes[0].Selection))
	for t, v := range nodes[0].Selection {
		shared[t] = v
	}
	for _, n := range nodes[1:] {
		for t, v := range shared {
			if n.Selection[t] != v {
				delete(shared, t)
			}
		}
	}
	return shared
}

// Query is one navigation step: where the operator currently is, plus the
// attribute values they just picked.
type Query struct {
	// GroupSlug or VariantID anchors the current context; both may be
	// empty for a cold start.
	GroupSlug string `json:"group"`
	VariantID uint   `json:"variant_id"`

	// Overrides maps type slug to the newly chosen value. Overrides win
	// over the context's own values.
	Overrides map[string]string `json:"overrides"`
}

// Target is where a navigation step lands.
type Target struct {
	Kind string `json:"kind"` // "group" or "variant"

	GroupID   uint   `json:"group_id,omitempty"`
	GroupSlug string `json:"group_slug,omitempty"`
	VariantID uint   `json:"variant_id,omitempty"`
	SKU       string `json:"sku,omitempty"`
	Name      string `json:"name,omitempty"`

	// Selection is the pinned attribute set the target was matched on.
	Selection map[string]string `json:"selection"`

	// Available maps each type slug to every observed value of the type,
	// flagged with its reachability from the selection. Unreachable values
	// stay listed so a client can render them disabled.
	Available map[string][]Option `json:"available"`
}

// Option is one value of an attribute type. Reachable reports whether some
// variant combines it with the current pinned selection, the pin on its own
// type excluded.
type Option struct {
	Value     string `json:"value"`
	Reachable bool   `json:"reachable"`
}

// Snapshot bundles the relation and group views for one product.
type Snapshot struct {
	Relation *Relation
	Groups   []GroupView
}

// Resolve walks one navigation step deterministically: the context's
// attribute values overlaid with the overrides form the pinned set, the
// best-matching group wins, and a single best variant is the fallback when
// no group fits. Overrides are hard pins. Context values an override makes
// unreachable are dropped and targets that do not carry every override are
// outranked, so an explicit choice never resolves back to the value it
// replaced. Ties break toward the most pins satisfied, then the lowest id,
// so the same query always lands on the same target.
func Resolve(snap *Snapshot, q Query) (*Target, error) {
	pinned, err := pinnedSelection(snap, q)
	if err != nil {
		return nil, err
	}

	target := &Target{Selection: pinned}

	if group := bestGroup(snap, pinned, q.Overrides); group != nil {
		target.Kind = "group"
		target.GroupID = group.ID
		target.GroupSlug = group.Slug
		target.Name = group.Name
	} else if variant := bestVariant(snap.Relation, pinned, q.Overrides); variant != nil {
		target.Kind = "variant"
		target.VariantID = variant.ID
		target.SKU = variant.SKU
		target.Name = variant.Name
	} else {
		return nil, fmt.Errorf("product %d has no active variants", snap.Relation.ProductID)
	}

	target.Available = make(map[string][]Option)
	for _, t := range snap.Relation.Types() {
		reachable := make(map[string]struct{})
		for _, v := range snap.Relation.Compatible(pinned, t) {
			reachable[v] = struct{}{}
		}
		values := snap.Relation.Values(t)
		options := make([]Option, 0, len(values))
		for _, v := range values {
			_, ok := reachable[v]
			options = append(options, Option{Value: v, Reachable: ok})
		}
		target.Available[t] = options
	}

	return target, nil
}

// pinnedSelection derives the pinned attribute set from the query context
// plus its overrides.
func pinnedSelection(snap *Snapshot, q Query) (map[string]string, error) {
	pinned := make(map[string]string)

	if q.VariantID != 0 {
		found := false
		for _, v := range snap.Relation.Variants {
			if v.ID == q.VariantID {
				for t, val := range v.Selection {
					pinned[t] = val
				}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("variant %d is not an active variant of product %d",
				q.VariantID, snap.Relation.ProductID)
		}
	} else if q.GroupSlug != "" {
		found := false
		for _, g := range snap.Groups {
			if g.Slug == q.GroupSlug {
				for t, val := range g.Shared {
					pinned[t] = val
				}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("group %q is not an active group of product %d",
				q.GroupSlug, snap.Relation.ProductID)
		}
	}

	for t, val := range q.Overrides {
		pinned[t] = val
	}

	// Context values no longer reachable alongside the overrides are
	// dropped; keeping them would pull the step back toward the context
	// the operator just left.
	for t, val := range pinned {
		if _, overridden := q.Overrides[t]; overridden {
			continue
		}
		pin := OptionRef{Type: t, Value: val}
		for ot, ov := range q.Overrides {
			if ot == t {
				continue
			}
			if !snap.Relation.Related(OptionRef{Type: ot, Value: ov}, pin) {
				delete(pinned, t)
				break
			}
		}
	}

	return pinned, nil
}

// bestGroup picks the group satisfying the most pins without conflicting on
// any of them. A group conflicts when a shared value disagrees with a pin or
// when none of its members carries the full pinned set including every
// override.
func bestGroup(snap *Snapshot, pinned, overrides map[string]string) *GroupView {
	nodesByID := make(map[uint]*VariantNode, len(snap.Relation.Variants))
	for i := range snap.Relation.Variants {
		nodesByID[snap.Relation.Variants[i].ID] = &snap.Relation.Variants[i]
	}

	var best *GroupView
	bestScore := -1

	for i := range snap.Groups {
		g := &snap.Groups[i]

		conflict := false
		score := 0
		for t, val := range pinned {
			shared, ok := g.Shared[t]
			if ok && shared != val {
				conflict = true
				break
			}
			if ok {
				score++
			}
		}
		if conflict {
			continue
		}

		satisfied := false
		for _, id := range g.MemberIDs {
			node := nodesByID[id]
			if node != nil && matchesPins(node.Selection, pinned, overrides) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			continue
		}

		if score > bestScore || (score == bestScore && best != nil && g.ID < best.ID) {
			best = g
			bestScore = score
		}
	}

	return best
}

// bestVariant picks the variant matching the most pins, lowest id on ties.
// Variants carrying every override outrank those that do not; the soft
// scoring only decides when no variant satisfies the overrides at all.
func bestVariant(rel *Relation, pinned, overrides map[string]string) *VariantNode {
	var best *VariantNode
	bestHard := false
	bestScore := -1

	for i := range rel.Variants {
		v := &rel.Variants[i]

		hard := true
		for t, val := range overrides {
			if v.Selection[t] != val {
				hard = false
				break
			}
		}

		score := 0
		for t, val := range pinned {
			if v.Selection[t] == val {
				score++
			}
		}

		if hard != bestHard {
			if hard {
				best, bestHard, bestScore = v, true, score
			}
			continue
		}
		if score > bestScore {
			best = v
			bestScore = score
		}
	}

	return best
}

// matchesPins reports whether a selection is consistent with the pinned set.
// Pins on types the selection lacks pass, except overrides, which the
// selection must carry outright.
func matchesPins(selection, pinned, overrides map[string]string) bool {
	for t, val := range pinned {
		have, ok := selection[t]
		if ok && have != val {
			return false
		}
	}
	for t, val := range overrides {
		if selection[t] != val {
			return false
		}
	}
	return true
}
