package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidMessageType(t *testing.T) {
	for _, valid := range []string{MessageTypeText, MessageTypeFile, MessageTypeImage, MessageTypeSystem} {
		assert.True(t, ValidMessageType(valid), valid)
	}
	assert.False(t, ValidMessageType(""))
	assert.False(t, ValidMessageType("video"))
}

func TestMessageSentBy(t *testing.T) {
	sender := 4
	msg := Message{SenderID: &sender}

	assert.True(t, msg.SentBy(4))
	assert.False(t, msg.SentBy(5))
	assert.False(t, msg.IsSystem())

	system := Message{}
	assert.True(t, system.IsSystem())
	assert.False(t, system.SentBy(4))
}
