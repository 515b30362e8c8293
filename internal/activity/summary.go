package activity

import (
	"fmt"
	"strings"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

// Category is one summarized kind of change.
type Category string

const (
	CategoryGroups Category = "groups"
	CategoryRooms  Category = "rooms"
	CategoryBadges Category = "badges"
	CategoryFigure Category = "figure"
	CategoryMotto  Category = "motto"
	CategoryPhotos Category = "photos"
)

// DefaultOrder is the phrase order used when none is configured.
var DefaultOrder = []Category{CategoryGroups, CategoryRooms, CategoryBadges, CategoryFigure, CategoryMotto, CategoryPhotos}

// DefaultBadgeThreshold is the badge count at which the summary switches to
// the "more than N" phrasing.
const DefaultBadgeThreshold = 5

// ParseOrder validates a configured category order. An empty list yields
// DefaultOrder.
func ParseOrder(names []string) ([]Category, error) {
	if len(names) == 0 {
		return DefaultOrder, nil
	}
	seen := make(map[Category]bool, len(names))
	out := make([]Category, 0, len(names))
	for _, n := range names {
		c := Category(strings.ToLower(strings.TrimSpace(n)))
		switch c {
		case CategoryGroups, CategoryRooms, CategoryBadges, CategoryFigure, CategoryMotto, CategoryPhotos:
		default:
			return nil, fmt.Errorf("unknown summary category %q", n)
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate summary category %q", n)
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// Summarizer renders summaries and detail lines. It is safe for concurrent use.
type Summarizer struct {
	locale         *Locale
	order          []Category
	badgeThreshold int
}

// NewSummarizer builds a summarizer. A nil order uses DefaultOrder; a
// non-positive threshold disables the "more than N" phrasing.
func NewSummarizer(locale *Locale, order []Category, badgeThreshold int) *Summarizer {
	if locale == nil {
		locale = NewLocale("")
	}
	if len(order) == 0 {
		order = DefaultOrder
	}
	return &Summarizer{locale: locale, order: order, badgeThreshold: badgeThreshold}
}

// Locale returns the language used for rendering.
func (s *Summarizer) Locale() *Locale { return s.locale }

// Summary enumerates the non-empty categories of a in the configured order and
// joins their phrases with commas.
func (s *Summarizer) Summary(a *model.AggregatedActivity) string {
	parts := make([]string, 0, len(s.order))
	for _, c := range s.order {
		switch c {
		case CategoryGroups:
			if n := len(a.MergedGroups); n > 0 {
				parts = append(parts, s.locale.sprintf(msgGroups, n))
			}
		case CategoryRooms:
			if n := len(a.MergedRooms); n > 0 {
				parts = append(parts, s.locale.sprintf(msgRooms, n))
			}
		case CategoryBadges:
			if n := len(a.MergedBadges); n > 0 {
				if s.badgeThreshold > 0 && n >= s.badgeThreshold {
					parts = append(parts, s.locale.sprintf(msgBadgesMany, n))
				} else {
					parts = append(parts, s.locale.sprintf(msgBadges, n))
				}
			}
		case CategoryFigure:
			if a.FigureChanged {
				parts = append(parts, s.locale.sprintf(msgFigure))
			}
		case CategoryMotto:
			if a.MottoChanged != nil {
				parts = append(parts, s.locale.sprintf(msgMotto))
			}
		case CategoryPhotos:
			if n := len(a.MergedPhotos); n > 0 {
				parts = append(parts, s.locale.sprintf(msgPhotos, n))
			}
		}
	}
	if len(parts) == 0 {
		return s.locale.sprintf(msgGeneric)
	}
	return strings.Join(parts, ", ")
}

// Details renders one line per notable change of r.
func (s *Summarizer) Details(r *model.ActivityRecord) []string {
	var lines []string
	for _, g := range r.GroupsJoined {
		lines = append(lines, s.locale.sprintf(msgJoinedGroup, nameOr(g, s.locale.sprintf(msgSomeGroup))))
	}
	for _, room := range r.RoomsCreated {
		lines = append(lines, s.locale.sprintf(msgCreatedRoom, nameOr(room, s.locale.sprintf(msgSomeRoom))))
	}
	switch n := len(r.BadgesGained); {
	case n == 1:
		lines = append(lines, s.locale.sprintf(msgEarnedBadge, r.BadgesGained[0].Identity()))
	case n > 1:
		lines = append(lines, s.locale.sprintf(msgEarnedBadges, n))
	}
	if r.FigureChanged {
		lines = append(lines, s.locale.sprintf(msgChangedLook))
	}
	if r.MottoChanged != nil {
		lines = append(lines, s.locale.sprintf(msgNewMotto, *r.MottoChanged))
	}
	for _, p := range r.PhotosPosted {
		lines = append(lines, s.locale.sprintf(msgPostedPhoto, nameOr(p, s.locale.sprintf(msgSomeRoom))))
	}
	return lines
}

func nameOr(d model.Descriptor, fallback string) string {
	if d.Name != "" {
		return d.Name
	}
	return fallback
}
