package ticket

import (
	"context"

	"go.uber.org/zap"

	"github.com/dumeirei/funzone-backend/internal/common/logger"
	"github.com/dumeirei/funzone-backend/internal/common/metrics"
	"github.com/dumeirei/funzone-backend/internal/models"
)

// CreditPublisher 游戏机加币命令发布
type CreditPublisher interface {
	PublishCredit(ctx context.Context, ticketID, gameID, userID int64, credits int) (string, error)
	Topic(gameID int64) string
}

// GameCreditNotifier 游戏票付款后给对应机台加币
type GameCreditNotifier struct {
	publisher CreditPublisher
	metrics   *metrics.Metrics
}

// NewGameCreditNotifier 创建加币通知
func NewGameCreditNotifier(publisher CreditPublisher, m *metrics.Metrics) *GameCreditNotifier {
	return &GameCreditNotifier{publisher: publisher, metrics: m}
}

// OnTicketPaid 活动票直接忽略
func (n *GameCreditNotifier) OnTicketPaid(ctx context.Context, ticket *models.Ticket) error {
	if !ticket.IsGame() {
		return nil
	}
	gameID := *ticket.GameID
	topic := n.publisher.Topic(gameID)

	commandID, err := n.publisher.PublishCredit(ctx, ticket.ID, gameID, ticket.UserID, ticket.Quantity)
	if err != nil {
		n.metrics.RecordMQTTMessage("game_credit", "error")
		return err
	}
	n.metrics.RecordMQTTMessage("game_credit", "ok")
	logger.Info("game credit published",
		logger.TicketID(ticket.ID),
		zap.String("topic", topic),
		zap.String("command_id", commandID),
	)
	return nil
}
