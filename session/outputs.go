package session

import (
	"context"
	"time"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/health"
	"github.com/kevinbdx35/rocket-telemetry/natsclient"
	"github.com/kevinbdx35/rocket-telemetry/output/mqtt"
	"github.com/kevinbdx35/rocket-telemetry/output/natspub"
	"github.com/kevinbdx35/rocket-telemetry/output/websocket"
	"github.com/kevinbdx35/rocket-telemetry/processor"
)

// defaultStopTimeout bounds output shutdown when ctx carries no deadline.
const defaultStopTimeout = 5 * time.Second

// output is one enabled network sink with its lifecycle hooks.
type output struct {
	name     string
	callback processor.Callback
	health   health.Checker
	start    func(ctx context.Context) error
	stop     func(ctx context.Context) error
}

func (s *Session) outputNames() []string {
	names := make([]string, 0, len(s.outputs))
	for _, o := range s.outputs {
		names = append(names, o.name)
	}
	return names
}

func (s *Session) buildOutputs() ([]output, error) {
	var outputs []output

	if s.cfg.NATS.Enabled {
		o, err := s.natsOutput()
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, o)
	}
	if s.cfg.MQTT.Enabled {
		o, err := s.mqttOutput()
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, o)
	}
	if s.cfg.WebSocket.Enabled {
		o, err := s.websocketOutput()
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, o)
	}
	return outputs, nil
}

func (s *Session) natsOutput() (output, error) {
	cfg := s.cfg.NATS
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(s.logs.Logger()),
		natsclient.WithMetrics(s.registry.CoreMetrics()),
		natsclient.WithMaxReconnects(cfg.MaxReconnects),
		natsclient.WithName(SystemName),
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.ReconnectWait.Std()))
	}
	if cfg.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.Token))
	}

	client, err := natsclient.NewClient(cfg.URL, opts...)
	if err != nil {
		return output{}, errors.Wrap(err, "Session", "natsOutput", "create nats client")
	}
	pub, err := natspub.New(client, cfg.Subject,
		natspub.WithLogger(s.logs.Logger()),
		natspub.WithMetrics(s.registry.CoreMetrics()),
		natspub.WithSource(s.sensor.Name()))
	if err != nil {
		return output{}, err
	}

	name := "output-" + natspub.Name
	return output{
		name:     name,
		callback: pub.Callback,
		health: func() health.Status {
			return health.Aggregate(name, []health.Status{client.Health(), pub.Health()})
		},
		start: client.Connect,
		stop:  client.Close,
	}, nil
}

func (s *Session) mqttOutput() (output, error) {
	cfg := s.cfg.MQTT
	mcfg := mqtt.DefaultConfig()
	mcfg.Broker = cfg.Broker
	mcfg.ClientID = cfg.ClientID
	mcfg.Topic = cfg.Topic
	mcfg.QoS = byte(cfg.QoS)
	mcfg.Retained = cfg.Retained
	mcfg.Username = cfg.Username
	mcfg.Password = cfg.Password

	out, err := mqtt.New(mcfg,
		mqtt.WithLogger(s.logs.Logger()),
		mqtt.WithMetrics(s.registry.CoreMetrics()),
		mqtt.WithSource(s.sensor.Name()))
	if err != nil {
		return output{}, err
	}

	return output{
		name:     "output-" + mqtt.Name,
		callback: out.Callback,
		health:   out.Health,
		start:    out.Connect,
		stop: func(context.Context) error {
			out.Close()
			return nil
		},
	}, nil
}

func (s *Session) websocketOutput() (output, error) {
	wcfg := websocket.DefaultConfig()
	wcfg.Port = s.cfg.WebSocket.Port
	wcfg.Path = s.cfg.WebSocket.Path

	out, err := websocket.New(wcfg,
		websocket.WithLogger(s.logs.Logger()),
		websocket.WithMetrics(s.registry),
		websocket.WithSource(s.sensor.Name()))
	if err != nil {
		return output{}, err
	}

	return output{
		name:     "output-" + websocket.Name,
		callback: out.Callback,
		health:   out.Health,
		start:    out.Start,
		stop: func(ctx context.Context) error {
			return out.Stop(stopTimeout(ctx))
		},
	}, nil
}

func stopTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			return remaining
		}
	}
	return defaultStopTimeout
}
