package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TopicGameCredit 游戏机加币主题，参数为游戏 ID
const TopicGameCredit = "game/%d/credit"

// Publisher 消息发布接口
type Publisher interface {
	PublishWithContext(ctx context.Context, topic string, payload interface{}) error
}

// CreditCommand 加币命令
type CreditCommand struct {
	CommandID string `json:"command_id"`
	TicketID  int64  `json:"ticket_id"`
	GameID    int64  `json:"game_id"`
	UserID    int64  `json:"user_id"`
	Credits   int    `json:"credits"`
	Timestamp int64  `json:"timestamp"`
}

// GameCreditPublisher 向游戏机下发加币命令
type GameCreditPublisher struct {
	publisher   Publisher
	topicPrefix string
	timeout     time.Duration
	now         func() time.Time
}

// NewGameCreditPublisher 创建加币命令发布器
func NewGameCreditPublisher(publisher Publisher, topicPrefix string, timeout time.Duration) *GameCreditPublisher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &GameCreditPublisher{
		publisher:   publisher,
		topicPrefix: topicPrefix,
		timeout:     timeout,
		now:         time.Now,
	}
}

// Topic 游戏的加币主题
func (p *GameCreditPublisher) Topic(gameID int64) string {
	return p.topicPrefix + fmt.Sprintf(TopicGameCredit, gameID)
}

// PublishCredit 发布加币命令，返回命令 ID
func (p *GameCreditPublisher) PublishCredit(ctx context.Context, ticketID, gameID, userID int64, credits int) (string, error) {
	cmd := &CreditCommand{
		CommandID: uuid.NewString(),
		TicketID:  ticketID,
		GameID:    gameID,
		UserID:    userID,
		Credits:   credits,
		Timestamp: p.now().Unix(),
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.publisher.PublishWithContext(ctx, p.Topic(gameID), cmd); err != nil {
		return "", err
	}
	return cmd.CommandID, nil
}
