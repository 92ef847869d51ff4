// Package events публикует события жизненного цикла отчетов.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Типы событий
const (
	ReportCreated = "created"
	ReportUpdated = "updated"
	ReportDeleted = "deleted"
)

// ReportEvent событие изменения отчета
type ReportEvent struct {
	ID         uuid.UUID `json:"event_id"`
	Type       string    `json:"event_type"`
	ReportID   int64     `json:"report_id"`
	TeamID     int64     `json:"team_id"`
	AuthorID   int64     `json:"author_id"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewReportEvent создает событие с новым ID; время берется из clock
func NewReportEvent(clock clockwork.Clock, eventType string, reportID, teamID, authorID int64, status string) ReportEvent {
	return ReportEvent{
		ID:         uuid.New(),
		Type:       eventType,
		ReportID:   reportID,
		TeamID:     teamID,
		AuthorID:   authorID,
		Status:     status,
		OccurredAt: clock.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event ReportEvent) error
	Close()
}

// NopPublisher используется, когда NATS не настроен
type NopPublisher struct {
	logger *zap.Logger
}

func NewNopPublisher(logger *zap.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

func (p *NopPublisher) Publish(_ context.Context, event ReportEvent) error {
	p.logger.Debug("событие не опубликовано: NATS не настроен",
		zap.String("event_type", event.Type),
		zap.Int64("report_id", event.ReportID))
	return nil
}

func (p *NopPublisher) Close() {}

// NATSPublisher публикует события в subject <prefix>.reports.<type>
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// ConnectNATS подключается к NATS с бесконечным переподключением
func ConnectNATS(url, prefix string, logger *zap.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("scouting-reports"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, prefix: prefix, logger: logger}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, event ReportEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(p.prefix, event.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Debug("событие опубликовано", zap.String("subject", subject), zap.String("event_id", event.ID.String()))
	return nil
}

// Close отправляет буферизованные сообщения и закрывает соединение
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("NATS drain failed", zap.Error(err))
		p.nc.Close()
	}
}

// Subject возвращает subject для типа события
func Subject(prefix, eventType string) string {
	if prefix == "" {
		return "reports." + eventType
	}
	return prefix + ".reports." + eventType
}
