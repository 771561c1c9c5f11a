// Package pool wraps ants worker pools for bounded fan-out work.
package pool

import "errors"

var (
	// ErrPoolClosed 池已关闭。
	ErrPoolClosed = errors.New("pool: closed")

	// ErrPoolOverload 非阻塞模式下池已满。
	ErrPoolOverload = errors.New("pool: overloaded")
)
