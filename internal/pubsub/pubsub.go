// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Queue PubSub 返回的订阅队列实例
type Queue interface {
	// ID 队列唯一标识
	ID() string

	// PopTimeout 从队列中弹出一个元素 操作会 block 直到有元素或者超时
	PopTimeout(timeout time.Duration) (any, bool)

	// Push 推送一个元素至队列中 队列已满时丢弃并返回 false
	Push(data any) bool

	// Dropped 返回因队列已满而丢弃的元素数量
	Dropped() uint64

	// Close 关闭并清理队列
	Close()
}

// channel 为 Queue 的一种实现
type channel struct {
	id      string
	ch      chan any
	mut     sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

func newChannel(size int) Queue {
	if size <= 0 {
		size = 1
	}

	return &channel{
		id: uuid.New().String(),
		ch: make(chan any, size),
	}
}

func (ch *channel) ID() string {
	return ch.id
}

func (ch *channel) PopTimeout(timeout time.Duration) (any, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case data, ok := <-ch.ch:
		return data, ok

	case <-ctx.Done():
		return nil, false
	}
}

func (ch *channel) Push(data any) bool {
	ch.mut.RLock()
	defer ch.mut.RUnlock()

	if ch.closed {
		return false
	}

	select {
	case ch.ch <- data:
		return true
	default:
		ch.dropped.Add(1)
		return false
	}
}

func (ch *channel) Dropped() uint64 {
	return ch.dropped.Load()
}

func (ch *channel) Close() {
	ch.mut.Lock()
	defer ch.mut.Unlock()

	if !ch.closed {
		ch.closed = true
		close(ch.ch)
	}
}

// PubSub 将样本广播给所有订阅者 订阅者消费过慢时样本会被丢弃 不会阻塞发布方
type PubSub struct {
	mut    sync.RWMutex
	queues map[string]Queue
}

func New() *PubSub {
	return &PubSub{
		queues: make(map[string]Queue),
	}
}

func (p *PubSub) Num() int {
	p.mut.RLock()
	defer p.mut.RUnlock()

	return len(p.queues)
}

func (p *PubSub) Subscribe(size int) Queue {
	p.mut.Lock()
	defer p.mut.Unlock()

	ch := newChannel(size)
	p.queues[ch.ID()] = ch
	return ch
}

// Publish 返回成功投递的订阅者数量
func (p *PubSub) Publish(msg any) int {
	p.mut.RLock()
	defer p.mut.RUnlock()

	var n int
	for _, q := range p.queues {
		if q.Push(msg) {
			n++
		}
	}
	return n
}

// Unsubscribe 取消订阅并关闭队列
func (p *PubSub) Unsubscribe(q Queue) {
	p.mut.Lock()
	defer p.mut.Unlock()

	delete(p.queues, q.ID())
	q.Close()
}
