// Package mqtt 游戏机 MQTT 下发
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotConnected 未连接 Broker
var ErrNotConnected = errors.New("mqtt: not connected")

const disconnectQuiesce = 250 // ms

// Option 客户端选项
type Option func(*Client)

func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.opts.SetUsername(username)
		c.opts.SetPassword(password)
	}
}

// WithClientIDPrefix 客户端 ID 为前缀加随机后缀，多实例部署时不冲突
func WithClientIDPrefix(prefix string) Option {
	return func(c *Client) { c.idPrefix = prefix }
}

func WithKeepAlive(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.opts.SetKeepAlive(d)
		}
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.opts.SetConnectTimeout(d)
		}
	}
}

func WithQoS(qos byte) Option {
	return func(c *Client) { c.qos = qos }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log.Named("mqtt")
		}
	}
}

// Client 只发布不订阅，断线后由 paho 自动重连
type Client struct {
	broker   string
	opts     *paho.ClientOptions
	conn     paho.Client
	idPrefix string
	qos      byte
	log      *zap.Logger
}

func NewClient(broker string, opts ...Option) *Client {
	c := &Client{
		broker:   broker,
		opts:     paho.NewClientOptions().AddBroker(broker).SetCleanSession(true).SetAutoReconnect(true),
		idPrefix: "funzone-",
		qos:      1,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.opts.SetOnConnectHandler(func(paho.Client) {
		c.log.Info("broker connected", zap.String("broker", broker))
	})
	c.opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warn("broker connection lost", zap.Error(err))
	})
	c.opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		c.log.Info("reconnecting to broker")
	})
	return c
}

// Connect 阻塞到连接建立、失败或 ctx 结束
func (c *Client) Connect(ctx context.Context) error {
	c.opts.SetClientID(c.idPrefix + uuid.NewString()[:8])
	conn := paho.NewClient(c.opts)
	if err := wait(ctx, conn.Connect()); err != nil {
		return fmt.Errorf("mqtt: connect %s: %w", c.broker, err)
	}
	c.conn = conn
	return nil
}

func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

func (c *Client) Close() {
	if !c.IsConnected() {
		return
	}
	c.conn.Disconnect(disconnectQuiesce)
	c.log.Info("broker disconnected")
}

// PublishWithContext payload 为 []byte 或 string 时原样发送，其余按 JSON 编码
func (c *Client) PublishWithContext(ctx context.Context, topic string, payload interface{}) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	data, err := encode(payload)
	if err != nil {
		return err
	}
	if err := wait(ctx, c.conn.Publish(topic, c.qos, false, data)); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

func encode(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mqtt: encode payload: %w", err)
	}
	return data, nil
}

func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	}
}
