package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishTxSent(t *testing.T) {
	p := &MemoryProducer{}
	ev := TxSent{
		Network: "goerli",
		ChainID: 5,
		Hash:    "0xabc",
		From:    "0x1111111111111111111111111111111111111111",
		Nonce:   3,
		Value:   "1000",
		SentAt:  time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, PublishTxSent(context.Background(), p, ev))

	msgs := p.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, TopicTxSent, msgs[0].Topic)
	assert.Equal(t, ev.From, msgs[0].Key)

	var got TxSent
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &got))
	assert.Equal(t, ev, got)
}

func TestPublishTxSent_Error(t *testing.T) {
	boom := errors.New("broker down")
	p := &MemoryProducer{Err: boom}
	err := PublishTxSent(context.Background(), p, TxSent{Hash: "0x1"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, p.Messages())

	assert.NoError(t, PublishTxSent(context.Background(), NopProducer{}, TxSent{}))
}
