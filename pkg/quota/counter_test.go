package quota

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_Key(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	c := NewCounter(nil, "")

	at := time.Date(2026, 2, 28, 23, 30, 0, 0, time.FixedZone("WAT", 3600))
	assert.Equal(t, "download_quota:11111111-2222-3333-4444-555555555555:2026-02", c.Key(id, at))

	custom := NewCounter(nil, "dq")
	assert.Equal(t, "dq:11111111-2222-3333-4444-555555555555:2026-03", custom.Key(id, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCounter_NilClientIsNoop(t *testing.T) {
	c := NewCounter(nil, "dq")

	n, err := c.Increment(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = c.Current(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, n)
}
