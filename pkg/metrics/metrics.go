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

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// pairchatNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	pairchatNamespace = "pairchat"

	brokerSubsystem  = "broker"
	networkSubsystem = "network"

	msgTypeLabelName = "type"
)

var (
	registerOnce sync.Once

	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: pairchatNamespace,
		Name:      "connections",
		Help:      "number of live connections held by the registry",
	})

	RegisteredConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: pairchatNamespace,
		Name:      "registered_connections",
		Help:      "number of live connections with a display name",
	})

	PairedConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: pairchatNamespace,
		Name:      "paired_connections",
		Help:      "number of live connections linked to a partner",
	})

	QueueWaiting = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: pairchatNamespace,
		Subsystem: brokerSubsystem,
		Name:      "queue_waiting",
		Help:      "1 when the matchmaking slot is occupied, 0 otherwise",
	})

	MessagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: pairchatNamespace,
		Subsystem: networkSubsystem,
		Name:      "messages_received_total",
		Help:      "client messages received, by type tag",
	}, []string{msgTypeLabelName})

	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: pairchatNamespace,
		Subsystem: networkSubsystem,
		Name:      "messages_sent_total",
		Help:      "server messages enqueued for delivery, by type tag",
	}, []string{msgTypeLabelName})

	SendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: pairchatNamespace,
		Subsystem: networkSubsystem,
		Name:      "send_failures_total",
		Help:      "server messages refused by a closed or full channel, by type tag",
	}, []string{msgTypeLabelName})

	MatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: pairchatNamespace,
		Subsystem: brokerSubsystem,
		Name:      "matches_total",
		Help:      "pairs formed by the matchmaking queue",
	})

	MalformedMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: pairchatNamespace,
		Subsystem: networkSubsystem,
		Name:      "malformed_messages_total",
		Help:      "client messages answered with server_error",
	})
)

// Register 将 pairchat 的全部指标注册到给定的 Registerer 中，重复调用只生效一次。
func Register(registry prometheus.Registerer) {
	registerOnce.Do(func() {
		registry.MustRegister(Connections)
		registry.MustRegister(RegisteredConnections)
		registry.MustRegister(PairedConnections)
		registry.MustRegister(QueueWaiting)
		registry.MustRegister(MessagesReceived)
		registry.MustRegister(MessagesSent)
		registry.MustRegister(SendFailures)
		registry.MustRegister(MatchesTotal)
		registry.MustRegister(MalformedMessages)
	})
}
