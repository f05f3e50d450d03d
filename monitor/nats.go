package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"

	"dbchain/logging"
)

// NATSConfig configures the JetStream event publisher.
type NATSConfig struct {
	URL           string
	Stream        string
	SubjectPrefix string
	Logger        logging.Logger
	Conn          *nats.Conn

	// 可选：流参数
	MaxBytes int64 // 0 表示不设置
	Replicas int   // 0 表示默认
}

// NATSPublisher ships query events onto a NATS JetStream stream.
// Publish failures are logged and never reach the query path.
type NATSPublisher struct {
	cfg      NATSConfig
	logger   logging.Logger
	conn     *nats.Conn
	js       nats.JetStreamContext
	ownsConn bool
}

// NewNATSPublisher connects (or adopts cfg.Conn) and ensures the stream exists.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.Stream == "" {
		cfg.Stream = "DBCHAIN"
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "db.query."
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "monitor.nats"))
	}
	p := &NATSPublisher{cfg: cfg, logger: cfg.Logger}
	if err := p.ensureConnection(); err != nil {
		return nil, err
	}
	if err := p.ensureStream(); err != nil {
		if p.ownsConn && p.conn != nil {
			p.conn.Close()
		}
		return nil, err
	}
	return p, nil
}

func (p *NATSPublisher) OnQuery(ctx context.Context, event *QueryEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn(ctx, "encode query event failed", logging.Error(err))
		return
	}
	if _, err := p.js.Publish(p.subjectName(event.Op), data); err != nil {
		p.logger.Warn(ctx, "publish query event failed",
			logging.String("query_id", event.ID),
			logging.Error(err))
	}
}

// Close releases the connection when the publisher owns it.
func (p *NATSPublisher) Close() error {
	if p.ownsConn && p.conn != nil {
		p.conn.Close()
	}
	p.conn = nil
	p.js = nil
	return nil
}

func (p *NATSPublisher) subjectName(op Op) string {
	return p.cfg.SubjectPrefix + string(op)
}

func (p *NATSPublisher) ensureConnection() error {
	if p.cfg.Conn != nil {
		p.conn = p.cfg.Conn
	} else {
		if p.cfg.URL == "" {
			p.cfg.URL = nats.DefaultURL
		}
		conn, err := nats.Connect(p.cfg.URL)
		if err != nil {
			return err
		}
		p.conn = conn
		p.ownsConn = true
	}
	js, err := p.conn.JetStream()
	if err != nil {
		return err
	}
	p.js = js
	return nil
}

func (p *NATSPublisher) ensureStream() error {
	_, err := p.js.StreamInfo(p.cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) && !strings.Contains(err.Error(), "stream not found") {
		return err
	}
	// 事件流只做容量限制，留存策略交给消费方
	sc := &nats.StreamConfig{
		Name:      p.cfg.Stream,
		Subjects:  []string{p.cfg.SubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
	}
	if p.cfg.MaxBytes > 0 {
		sc.MaxBytes = p.cfg.MaxBytes
	}
	if p.cfg.Replicas > 0 {
		sc.Replicas = p.cfg.Replicas
	}
	_, err = p.js.AddStream(sc)
	return err
}
