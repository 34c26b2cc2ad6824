// Package seed creates demo data for development and testing. It writes
// through the regular services so everything it produces is shaped exactly
// like production data, fan-out copies and comment counts included.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"agora/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

var themaNames = []string{
	"General", "Movies", "Music", "Gaming", "Fitness", "Hobbies", "Sports",
	"Technology", "Anime", "Books", "Food", "Travel", "Programming", "Linux",
	"Frontend", "Backend", "DevOps", "Cloud", "Startups", "Homelab", "Art",
	"History", "Philosophy", "Science", "Pets", "Finance", "Investing",
}

// Factory generates identities and content. A fixed Rand seed makes a run
// reproducible.
type Factory struct {
	rand *rand.Rand
}

func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	return &Factory{rand: rand.New(rand.NewSource(seed))}
}

// Identity produces a plausible person.
func (f *Factory) Identity() models.Identity {
	name := gofakeit.Name()
	handle := strings.ToLower(gofakeit.Username())
	return models.Identity{
		UID:         fmt.Sprintf("u_%s", gofakeit.UUID()[:8]),
		DisplayName: name,
		Handle:      handle,
		PhotoURL:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", handle),
	}
}

// ThemaName returns the i-th thema name, suffixed past the base list so
// names stay unique.
func (f *Factory) ThemaName(i int) string {
	if i < len(themaNames) {
		return themaNames[i]
	}
	return fmt.Sprintf("%s %d", themaNames[i%len(themaNames)], i/len(themaNames)+1)
}

func (f *Factory) ThreadTitle() string {
	return strings.TrimSuffix(gofakeit.Sentence(f.rand.Intn(5)+3), ".")
}

func (f *Factory) CommentText() string {
	return gofakeit.Paragraph(1, f.rand.Intn(2)+1, f.rand.Intn(8)+4, " ")
}

func (f *Factory) MessageText() string {
	return gofakeit.Sentence(f.rand.Intn(10) + 2)
}

func (f *Factory) GroupName() string {
	return gofakeit.NounCollectiveThing()
}

// ReactionKind picks one of the supported kinds.
func (f *Factory) ReactionKind() string {
	return models.KnownReactionKinds[f.rand.Intn(len(models.KnownReactionKinds))]
}

// Pick returns a random element's index below n.
func (f *Factory) Pick(n int) int {
	return f.rand.Intn(n)
}

// Chance is true with probability pct/100.
func (f *Factory) Chance(pct int) bool {
	return f.rand.Intn(100) < pct
}
