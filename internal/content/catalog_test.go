package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCoversEveryTopic(t *testing.T) {
	c, err := NewCatalog(1)
	require.NoError(t, err)

	for _, topic := range Topics {
		qs, err := c.Questions(context.Background(), topic, 0)
		require.NoError(t, err, topic)
		assert.NotEmpty(t, qs, topic)
		for _, q := range qs {
			assert.Equal(t, topic, q.Topic)
			assert.Less(t, q.Answer, len(q.Options))
		}
	}
}

func TestQuestionsLimitAndUnknownTopic(t *testing.T) {
	c, err := NewCatalog(1)
	require.NoError(t, err)

	qs, err := c.Questions(context.Background(), "music", 2)
	require.NoError(t, err)
	assert.Len(t, qs, 2)

	_, err = c.Questions(context.Background(), "cooking", 2)
	assert.Error(t, err)
}

func TestGameLookup(t *testing.T) {
	c, err := NewCatalog(1)
	require.NoError(t, err)

	g, ok := c.Game("dart")
	require.True(t, ok)
	assert.Equal(t, "accuracy", g.Type)

	_, ok = c.Game("chess")
	assert.False(t, ok)

	assert.True(t, c.ValidTopic(c.RandomTopic()))
	_, ok = c.Game(c.RandomGame().ID)
	assert.True(t, ok)
}
