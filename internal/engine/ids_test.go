package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_DefaultIDsAreUUIDv7(t *testing.T) {
	h := newHarness(t, balancedResult())
	h.engine.ids = UUIDv7Generator{}

	res, err := h.engine.Start(context.Background(), StartRequest{DocPath: h.docPath})
	require.NoError(t, err)

	for _, id := range []string{res.RunID, res.DocID} {
		parsed, err := uuid.Parse(id)
		require.NoError(t, err, id)
		assert.Equal(t, uuid.Version(7), parsed.Version())
	}
	assert.NotEqual(t, res.RunID, res.DocID)
}

func TestStart_DrawsRunIDBeforeDocID(t *testing.T) {
	h := newHarness(t, balancedResult())
	h.engine.ids = NewFixedGenerator("run-fixed", "doc-fixed", "run-next")

	res, err := h.engine.Start(context.Background(), StartRequest{DocPath: h.docPath})
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", res.RunID)
	assert.Equal(t, "doc-fixed", res.DocID)

	// A caller-supplied document ID leaves the rest of the list alone.
	res, err = h.engine.Start(context.Background(), StartRequest{DocID: "doc-upload", DocPath: h.docPath})
	require.NoError(t, err)
	assert.Equal(t, "run-next", res.RunID)
	assert.Equal(t, "doc-upload", res.DocID)
}

func TestStart_CallerIDsSkipTheGenerator(t *testing.T) {
	h := newHarness(t, balancedResult())
	h.engine.ids = NewFixedGenerator()

	res, err := h.engine.Start(context.Background(), StartRequest{RunID: "r", DocID: "d", DocPath: h.docPath})
	require.NoError(t, err)
	assert.Equal(t, "r", res.RunID)

	assert.Panics(t, func() {
		_, _ = h.engine.Start(context.Background(), StartRequest{DocPath: h.docPath})
	}, "an exhausted generator is a misconfigured test")
}
