package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jo-hoe/splitpages/internal/event"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaNotifier_PublishOneMessagePerPage(t *testing.T) {
	writer := &recordingWriter{}
	notifier := newKafkaNotifier(writer, "pages-ready")

	pages := []event.PageRef{
		{Bucket: "deeds", Key: "raw/a.tif", PageNum: 1},
		{Bucket: "deeds", Key: "raw/b.tif", PageNum: 1},
	}
	require.NoError(t, notifier.Publish(context.Background(), pages))
	require.Len(t, writer.messages, 2)

	assert.Equal(t, "raw/a.tif", string(writer.messages[0].Key))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(writer.messages[1].Value, &decoded))
	assert.Equal(t, "deeds", decoded["bucket"])
	assert.Equal(t, "raw/b.tif", decoded["key"])
	assert.EqualValues(t, 1, decoded["page_num"])
}

func TestKafkaNotifier_EmptyIsNoop(t *testing.T) {
	writer := &recordingWriter{err: errors.New("must not be called")}
	notifier := newKafkaNotifier(writer, "pages-ready")
	assert.NoError(t, notifier.Publish(context.Background(), nil))
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker unreachable")}
	notifier := newKafkaNotifier(writer, "pages-ready")
	err := notifier.Publish(context.Background(), []event.PageRef{{Bucket: "b", Key: "k", PageNum: 1}})
	assert.ErrorContains(t, err, "broker unreachable")
}

func TestKafkaNotifier_Close(t *testing.T) {
	writer := &recordingWriter{}
	require.NoError(t, newKafkaNotifier(writer, "t").Close())
	assert.True(t, writer.closed)
}

func TestNewNotifier(t *testing.T) {
	n, err := NewNotifier(Config{})
	require.NoError(t, err)
	assert.IsType(t, NoopNotifier{}, n)

	_, err = NewNotifier(Config{Type: TypeKafka, Topic: "t"})
	assert.Error(t, err, "brokers required")

	n, err = NewNotifier(Config{Type: TypeKafka, Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	assert.IsType(t, &KafkaNotifier{}, n)
	_ = n.Close()

	_, err = NewNotifier(Config{Type: "sqs"})
	assert.Error(t, err)
}
