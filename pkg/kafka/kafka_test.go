package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

type fakeWriter struct {
	written []kafka.Message
	err     error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestConsumerCommitsOnlyHandledMessages(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Offset: 1, Value: []byte(`ok`)},
		{Offset: 2, Value: []byte(`bad`)},
		{Offset: 3, Value: []byte(`ok`)},
	}}
	var handled []string
	c := NewConsumerWithReader(reader, "docs", func(ctx context.Context, key, value []byte) error {
		handled = append(handled, string(value))
		if string(value) == "bad" {
			return errors.New("rejected")
		}
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []string{"ok", "bad", "ok"}, handled)
	assert.Equal(t, []int64{1, 3}, reader.committed)
	assert.True(t, reader.closed)
}

func TestProducerPublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "docs")

	err := p.PublishBatch(context.Background(), []Event{
		{Key: "a", Value: map[string]string{"id": "a"}},
		{Key: "b", Value: map[string]string{"id": "b"}},
	})
	require.NoError(t, err)
	require.Len(t, w.written, 2)
	assert.Equal(t, "b", string(w.written[1].Key))
	assert.JSONEq(t, `{"id":"a"}`, string(w.written[0].Value))

	require.NoError(t, p.PublishBatch(context.Background(), nil))
	assert.Len(t, w.written, 2)
}

func TestProducerWrapsWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "docs")

	err := p.Publish(context.Background(), Event{Key: "a", Value: 1})
	assert.ErrorContains(t, err, "broker down")
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		ID string `json:"id"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"id":"doc-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)

	_, err = DecodeJSON[payload]([]byte(`{`))
	assert.Error(t, err)
}
