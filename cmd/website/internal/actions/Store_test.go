package actions

import (
	"testing"

	"github.com/adampresley/picturegallery/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestStoreHandsOutCopies(t *testing.T) {
	store := NewStore()
	assert.False(t, store.Loaded())

	store.Replace(threePictures())
	assert.True(t, store.Loaded())

	snapshot := store.Snapshot()
	snapshot[1].Comments[0].Text = "changed"
	snapshot[0].Rating = 5

	b, ok := store.Find("b.jpg")
	assert.True(t, ok)
	assert.Equal(t, "hi", b.Comments[0].Text)

	a, _ := store.Find("a.jpg")
	assert.Equal(t, 1, a.Rating)
}

func TestStorePatchesOnlyKnownPictures(t *testing.T) {
	store := NewStore()
	store.Replace(threePictures())

	_, ok := store.SetRating("missing.jpg", 3)
	assert.False(t, ok)

	_, ok = store.AppendComment("missing.jpg", models.Comment{Author: "x", Text: "y"})
	assert.False(t, ok)

	picture, ok := store.AppendComment("a.jpg", models.Comment{Author: "ann", Text: "nice"})
	assert.True(t, ok)
	assert.Len(t, picture.Comments, 1)
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, store.Names())
}
