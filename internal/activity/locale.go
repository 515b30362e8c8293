package activity

import (
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys double as the en-US source text.
const (
	msgGroups       = "%d new group(s)"
	msgRooms        = "%d new room(s)"
	msgBadges       = "%d new badge(s)"
	msgBadgesMany   = "more than %d new badge(s)"
	msgFigure       = "changed their look"
	msgMotto        = "changed their motto"
	msgPhotos       = "%d new photo(s)"
	msgGeneric      = "had profile activity"
	msgJustNow      = "just now"
	msgMinutesAgo   = "%d minutes ago"
	msgHoursAgo     = "%d hours ago"
	msgDaysAgo      = "%d days ago"
	msgJoinedGroup  = "Joined group: %s"
	msgCreatedRoom  = "Created room: %s"
	msgEarnedBadge  = "Earned badge: %s"
	msgEarnedBadges = "Earned %d new badges"
	msgChangedLook  = "Changed avatar look"
	msgNewMotto     = "New motto: \"%s\""
	msgPostedPhoto  = "Posted a photo in %s"
	msgSomeGroup    = "a group"
	msgSomeRoom     = "a room"
)

var portuguese = map[string]string{
	msgGroups:       "%d novo(s) grupo(s)",
	msgRooms:        "%d novo(s) quarto(s)",
	msgBadges:       "%d novo(s) emblema(s)",
	msgBadgesMany:   "mais de %d novo(s) emblema(s)",
	msgFigure:       "mudou seu visual",
	msgMotto:        "mudou a missão",
	msgPhotos:       "%d nova(s) foto(s)",
	msgGeneric:      "atividade no perfil",
	msgJustNow:      "agora mesmo",
	msgMinutesAgo:   "há %d minuto(s)",
	msgHoursAgo:     "há %d hora(s)",
	msgDaysAgo:      "há %d dia(s)",
	msgJoinedGroup:  "Entrou no grupo: %s",
	msgCreatedRoom:  "Criou o quarto: %s",
	msgEarnedBadge:  "Conquistou o emblema: %s",
	msgEarnedBadges: "Conquistou %d novos emblemas",
	msgChangedLook:  "Mudou o visual do avatar",
	msgNewMotto:     "Nova missão: \"%s\"",
	msgPostedPhoto:  "Postou foto em %s",
	msgSomeGroup:    "Grupo",
	msgSomeRoom:     "um quarto",
}

var supported = []language.Tag{language.BrazilianPortuguese, language.AmericanEnglish}

var (
	matcher = language.NewMatcher(supported)
	phrases = buildCatalog()
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.AmericanEnglish))
	for key, value := range portuguese {
		_ = b.SetString(language.BrazilianPortuguese, key, value)
		_ = b.SetString(language.AmericanEnglish, key, key)
	}
	return b
}

// Locale renders feed phrases in one supported language.
type Locale struct {
	tag     language.Tag
	mu      sync.Mutex
	printer *message.Printer
}

// NewLocale matches name (a BCP 47 tag such as "pt-BR" or "en") against the
// supported languages. Unknown or empty names fall back to pt-BR.
func NewLocale(name string) *Locale {
	tag := language.BrazilianPortuguese
	if name != "" {
		if parsed, err := language.Parse(name); err == nil {
			_, idx, conf := matcher.Match(parsed)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return &Locale{tag: tag, printer: message.NewPrinter(tag, message.Catalog(phrases))}
}

// Tag returns the matched language.
func (l *Locale) Tag() language.Tag { return l.tag }

func (l *Locale) sprintf(key string, args ...interface{}) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.printer.Sprintf(key, args...)
}

// TimeAgo renders the distance between t and now using minute / hour / day
// buckets. Future timestamps (clock skew) read as "just now".
func (l *Locale) TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return l.sprintf(msgJustNow)
	case d < time.Hour:
		return l.sprintf(msgMinutesAgo, int(d/time.Minute))
	case d < 24*time.Hour:
		return l.sprintf(msgHoursAgo, int(d/time.Hour))
	default:
		return l.sprintf(msgDaysAgo, int(d/(24*time.Hour)))
	}
}
