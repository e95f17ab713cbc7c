package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSerialize(t *testing.T) {
	for _, msg := range []Message{
		{Type: "scrape_one", Body: []byte(`{"student":"a|b"}`)},
		{Type: "a|b", Body: []byte("|leading|and trailing|")},
		{Type: "scrape_one"},
	} {
		payload, err := serialize(msg)
		require.NoError(t, err)
		got := deserialize(payload)
		if diff := cmp.Diff(msg, got); diff != "" {
			t.Fatal(diff)
		}
	}

	untyped := deserialize("scrape_one|plain")
	require.Equal(t, "", untyped.Type)
	require.Equal(t, "scrape_one|plain", string(untyped.Body))
}

func TestInMemory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: "a"}))
	require.NoError(t, q.Publish(ctx, Message{Type: "b"}))
	require.Equal(t, 2, q.Len())

	out, err := q.Consume(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", (<-out).Type)
	require.Equal(t, "b", (<-out).Type)

	cancel()
	for range out {
	}
}
