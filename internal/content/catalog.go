// Package content serves round content: trivia topics, the question bank
// and mini-game descriptors.
package content

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jason-s-yu/arena/internal/models"
	"github.com/samber/lo"
)

//go:embed questions.json
var questionBank []byte

// Topics a question round can draw from.
var Topics = []string{"solana", "music", "sports", "movies", "history", "fashion"}

// Games lists the skill mini-games.
var Games = []models.MiniGame{
	{
		ID:           "basketball",
		Name:         "Basketball",
		Type:         "typing",
		Description:  "Type words quickly to score baskets!",
		Instructions: "Type the words as fast as you can to score points. Faster typing = more baskets!",
	},
	{
		ID:           "survivor",
		Name:         "Survivor",
		Type:         "reaction",
		Description:  "Test your reaction time to survive!",
		Instructions: "Click when you see the target appear. Faster reactions = higher survival rate!",
	},
	{
		ID:           "dart",
		Name:         "Dart",
		Type:         "accuracy",
		Description:  "Aim carefully and hit the bullseye!",
		Instructions: "Aim and throw by clicking at the right moment. Precision is key!",
	},
	{
		ID:           "conquest",
		Name:         "Conquest",
		Type:         "strategy",
		Description:  "Strategic thinking to conquer territories!",
		Instructions: "Make strategic decisions to capture territories and defeat opponents!",
	},
}

type bankEntry struct {
	ID       string   `json:"id"`
	Topic    string   `json:"topic"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   int      `json:"answer"`
}

// Catalog is an in-process content source.
type Catalog struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	questions map[string][]models.Question
}

// NewCatalog loads the embedded question bank. A zero seed uses the clock.
func NewCatalog(seed int64) (*Catalog, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var entries []bankEntry
	if err := json.Unmarshal(questionBank, &entries); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}

	byTopic := lo.GroupBy(entries, func(e bankEntry) string { return e.Topic })
	questions := make(map[string][]models.Question, len(byTopic))
	for topic, list := range byTopic {
		questions[topic] = lo.Map(list, func(e bankEntry, _ int) models.Question {
			return models.Question{
				ID:      e.ID,
				Topic:   e.Topic,
				Text:    e.Question,
				Options: e.Options,
				Answer:  e.Answer,
			}
		})
	}
	return &Catalog{
		rnd:       rand.New(rand.NewSource(seed)),
		questions: questions,
	}, nil
}

func (c *Catalog) intn(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Intn(n)
}

// RandomTopic picks a topic uniformly.
func (c *Catalog) RandomTopic() string {
	return Topics[c.intn(len(Topics))]
}

// RandomGame picks a mini-game uniformly.
func (c *Catalog) RandomGame() models.MiniGame {
	return Games[c.intn(len(Games))]
}

// Game looks a mini-game up by id.
func (c *Catalog) Game(id string) (models.MiniGame, bool) {
	return lo.Find(Games, func(g models.MiniGame) bool { return g.ID == id })
}

// ValidTopic reports whether topic has questions.
func (c *Catalog) ValidTopic(topic string) bool {
	return lo.Contains(Topics, topic)
}

// Questions returns up to n shuffled questions for topic.
func (c *Catalog) Questions(ctx context.Context, topic string, n int) ([]models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pool, ok := c.questions[topic]
	if !ok {
		return nil, fmt.Errorf("unknown topic %q", topic)
	}

	c.mu.Lock()
	out := make([]models.Question, len(pool))
	copy(out, pool)
	c.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	c.mu.Unlock()

	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}
