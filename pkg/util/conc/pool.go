// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conc

import (
	"github.com/cockroachdb/errors"
	ants "github.com/panjf2000/ants/v2"

	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// Pool 是基于 ants 的协程池封装。
//
// 接入层为每条连接提交一个长生命周期任务，池容量即最大并发连接数。
type Pool struct {
	inner *ants.Pool
	opt   *poolOption
}

// NewPool 创建一个容量为 cap 的协程池；cap <= 0 表示不限容量。
func NewPool(cap int, opts ...PoolOption) (*Pool, error) {
	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}

	if cap <= 0 {
		cap = -1
	}
	inner, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		return nil, err
	}
	return &Pool{inner: inner, opt: opt}, nil
}

// Submit 向池中提交一个任务。
//
// 非阻塞模式下池满会立即返回 merr.ErrPoolExhausted。
func (p *Pool) Submit(task func()) error {
	err := p.inner.Submit(func() {
		if p.opt.preHandler != nil {
			p.opt.preHandler()
		}
		task()
	})
	if errors.Is(err, ants.ErrPoolOverload) {
		return merr.WrapErrPoolExhausted(p.inner.Cap())
	}
	return err
}

// Running 返回存活的 worker 数，包含尚未过期的空闲 worker，不能当作在途任务数使用。
func (p *Pool) Running() int {
	return p.inner.Running()
}

// Cap 返回池容量，-1 表示不限。
func (p *Pool) Cap() int {
	return p.inner.Cap()
}

// Release 释放池资源，不等待正在运行的任务结束。
func (p *Pool) Release() {
	p.inner.Release()
}
