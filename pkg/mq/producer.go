package mq

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// TopicTxSent 交易广播成功后发布的主题
const TopicTxSent = "evm_kit.tx_sent"

// Producer 生产者接口
type Producer interface {
	// Publish 发送消息
	// key: 分区键，传空字符串则随机分区
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

// TxSent 交易已被节点接受
type TxSent struct {
	Network  string    `json:"network"`
	ChainID  int64     `json:"chain_id"`
	Hash     string    `json:"hash"`
	From     string    `json:"from"`
	To       string    `json:"to,omitempty"`
	Nonce    uint64    `json:"nonce"`
	Value    string    `json:"value"` // wei
	Explorer string    `json:"explorer,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// PublishTxSent 以发送地址为分区键，同一账户的事件保持有序
func PublishTxSent(ctx context.Context, p Producer, ev TxSent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.Publish(ctx, TopicTxSent, ev.From, payload)
}

// NopProducer 丢弃所有消息
type NopProducer struct{}

func (NopProducer) Publish(context.Context, string, string, []byte) error { return nil }
func (NopProducer) Close() error                                         { return nil }

// Message 一条已发布的消息
type Message struct {
	Topic   string
	Key     string
	Payload []byte
}

// MemoryProducer 把消息保存在内存里，用于测试和本地调试
type MemoryProducer struct {
	mu       sync.Mutex
	messages []Message
	Err      error // 非空时 Publish 直接返回该错误
}

func (p *MemoryProducer) Publish(_ context.Context, topic, key string, payload []byte) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Topic: topic, Key: key, Payload: append([]byte(nil), payload...)})
	return nil
}

func (p *MemoryProducer) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

func (p *MemoryProducer) Close() error { return nil }
