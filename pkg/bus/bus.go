// Package bus bridges engine events onto an NNG PUB socket, so
// external processes can follow the lattice without linking the
// engine. Frames are "topic|json": subscribers filter on the topic
// prefix and decode the JSON event envelope after the separator.
package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xepoctpat/H3X-sub004/pkg/engine"
	"github.com/xepoctpat/H3X-sub004/pkg/logging"
	"github.com/xepoctpat/H3X-sub004/pkg/metrics"
	"github.com/xepoctpat/H3X-sub004/pkg/pubsub"
)

// frameSeparator splits the topic prefix from the JSON payload.
const frameSeparator = '|'

// Options configures a Publisher. Engine and URL are required; a nil
// Factory means real NNG sockets.
type Options struct {
	URL     string
	Engine  *engine.Engine
	Factory SocketFactory
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Publisher relays engine events out-of-process. Single
// responsibility: fan-out, never inbound.
type Publisher struct {
	url      string
	engine   *engine.Engine
	factory  SocketFactory
	logger   logging.Logger
	registry *metrics.Registry

	socket    PubSocket
	cancel    context.CancelFunc
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
}

// NewPublisher creates a stopped publisher.
func NewPublisher(opts Options) (*Publisher, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("bus: engine is required")
	}
	if opts.URL == "" {
		return nil, fmt.Errorf("bus: url is required")
	}

	factory := opts.Factory
	if factory == nil {
		factory = NNGFactory{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Publisher{
		url:      opts.URL,
		engine:   opts.Engine,
		factory:  factory,
		logger:   logger.With(logging.Component("bus")),
		registry: opts.Metrics,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start binds the PUB socket and begins relaying engine events.
func (p *Publisher) Start() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return fmt.Errorf("bus: publisher already running")
	}

	socket, err := p.factory.NewPubSocket()
	if err != nil {
		return fmt.Errorf("bus: create pub socket: %w", err)
	}
	if err := socket.Listen(p.url); err != nil {
		socket.Close()
		return fmt.Errorf("bus: bind %s: %w", p.url, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := p.engine.Subscribe(ctx)
	if err != nil {
		cancel()
		socket.Close()
		return fmt.Errorf("bus: subscribe: %w", err)
	}

	p.socket = socket
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	go p.publishLoop(sub)

	p.logger.Info("bus publisher listening", logging.String("url", p.url))
	return nil
}

// Stop unsubscribes, drains the loop, and closes the socket. Safe to
// call on a stopped publisher.
func (p *Publisher) Stop() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if !p.running {
		return nil
	}

	close(p.stopCh)
	p.cancel()
	p.running = false
	p.wg.Wait()

	if err := p.socket.Close(); err != nil {
		p.logger.Warn("close bus socket", logging.Error(err))
	}

	p.logger.Info("bus publisher stopped")
	return nil
}

func (p *Publisher) publishLoop(sub *pubsub.Subscription) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case evt, ok := <-sub.Channel():
			if !ok {
				return
			}

			frame, err := Encode(evt)
			if err != nil {
				p.logger.Error("encode bus frame", logging.Error(err))
				continue
			}

			if err := p.socket.Send(frame); err != nil {
				p.logger.Error("send bus frame", logging.Error(err))
				if p.registry != nil {
					p.registry.BusSendErrors.Inc()
				}
				continue
			}
			if p.registry != nil {
				p.registry.BusFramesSent.Inc()
			}
		}
	}
}

// Encode renders one event as a topic-prefixed JSON frame.
func Encode(evt pubsub.Event) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, len(evt.Topic)+1+len(payload))
	frame = append(frame, evt.Topic...)
	frame = append(frame, frameSeparator)
	frame = append(frame, payload...)
	return frame, nil
}

// Decode splits a frame back into topic and event. Consumers filter on
// the raw prefix; this is the full parse.
func Decode(frame []byte) (string, pubsub.Event, error) {
	idx := bytes.IndexByte(frame, frameSeparator)
	if idx < 1 {
		return "", pubsub.Event{}, fmt.Errorf("bus: malformed frame")
	}

	var evt pubsub.Event
	if err := json.Unmarshal(frame[idx+1:], &evt); err != nil {
		return "", pubsub.Event{}, fmt.Errorf("bus: decode frame: %w", err)
	}
	return string(frame[:idx]), evt, nil
}
