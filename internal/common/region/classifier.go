package region

import (
	"regexp"
	"strings"

	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

// minReverseLen is the shortest folded text allowed to match a city by being
// contained in the city name.
const minReverseLen = 4

var regionTokenRe = regexp.MustCompile(`(^|[^a-z])(ms|mato grosso do sul)([^a-z]|$)`)

// Result is the outcome of classifying one location text
type Result struct {
	IsRegion bool
	City     string
	RawMatch string
}

type foldedCity struct {
	name   string
	folded string
}

// Classifier decides whether a location text belongs to the target region
// and assigns a canonical city. It is safe for concurrent use.
type Classifier struct {
	cities []foldedCity
	remote []string
}

// NewClassifier creates a classifier over the built-in city list
func NewClassifier() *Classifier {
	cities := make([]foldedCity, 0, len(Cities))
	for _, c := range Cities {
		cities = append(cities, foldedCity{name: c.Name, folded: Fold(c.Name)})
	}
	return &Classifier{cities: cities, remote: RemoteIndicators}
}

// Classify returns (isRegion, city, rawMatch) for text
func (c *Classifier) Classify(text string) Result {
	folded := Fold(text)
	if folded == "" {
		return Result{}
	}

	spaced := strings.Join(strings.Fields(strings.Map(dashToSpace, folded)), " ")
	for _, ind := range c.remote {
		if strings.Contains(spaced, ind) {
			return Result{IsRegion: true, City: domain.RemoteCity, RawMatch: text}
		}
	}

	if city, ok := c.matchCity(folded); ok {
		return Result{IsRegion: true, City: city, RawMatch: text}
	}

	if regionTokenRe.MatchString(folded) {
		return Result{IsRegion: true, City: domain.RegionName, RawMatch: text}
	}

	return Result{}
}

// matchCity scans the city list in order. When several cities match, the
// longest folded name wins; equal lengths keep list order.
func (c *Classifier) matchCity(folded string) (string, bool) {
	best := -1
	for i, city := range c.cities {
		if !containsEither(folded, city.folded) {
			continue
		}
		if best < 0 || len(city.folded) > len(c.cities[best].folded) {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return c.cities[best].name, true
}

func containsEither(text, city string) bool {
	if strings.Contains(text, city) {
		return true
	}
	return len(text) >= minReverseLen && strings.Contains(city, text)
}

// dashToSpace lets "home-office" and "home_office" match "home office"
func dashToSpace(r rune) rune {
	if r == '-' || r == '_' {
		return ' '
	}
	return r
}
