package rabbitmq

import (
	"github.com/streadway/amqp"
)

// Session is an AMQP connection with one channel opened on it.
type Session interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Dialer opens a Session.
type Dialer func(url string) (Session, error)

type amqpSession struct {
	conn *amqp.Connection
	*amqp.Channel
}

func dialAMQP(url string) (Session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &amqpSession{conn: conn, Channel: ch}, nil
}

func (s *amqpSession) IsClosed() bool {
	return s.conn.IsClosed()
}

func (s *amqpSession) Close() error {
	_ = s.Channel.Close()
	return s.conn.Close()
}
