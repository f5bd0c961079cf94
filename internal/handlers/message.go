package handlers

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/eatmoreapple/openwechat"
	"go.uber.org/zap"
)

// commandTimeout bounds one command, including both quote lookups for
// every symbol in a /check.
const commandTimeout = 5 * time.Minute

// WeChatHandler adapts the dispatcher to openwechat messages.
type WeChatHandler struct {
	dispatcher *Dispatcher
	logger     *zap.Logger
}

func NewWeChatHandler(dispatcher *Dispatcher, logger *zap.Logger) *WeChatHandler {
	return &WeChatHandler{dispatcher: dispatcher, logger: logger.Named("wechat")}
}

// HandleMessage is registered as the bot's MessageHandler.
func (h *WeChatHandler) HandleMessage(msg *openwechat.Message) {
	if !msg.IsText() || msg.IsSendBySelf() {
		return
	}

	in, err := h.incoming(msg)
	if err != nil {
		h.logger.Warn("resolve sender failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply, ok := h.dispatcher.Handle(ctx, in)
	if !ok {
		return
	}
	if len(reply.Image) > 0 {
		_, err := msg.ReplyImage(bytes.NewReader(reply.Image))
		if err == nil {
			return
		}
		h.logger.Warn("reply image failed, sending text", zap.Error(err))
	}
	if _, err := msg.ReplyText(reply.Text); err != nil {
		h.logger.Error("reply text failed", zap.String("user_id", in.UserID), zap.Error(err))
	}
}

// incoming resolves the sender. In a group the watchlist belongs to the
// member who wrote the message, not to the group.
func (h *WeChatHandler) incoming(msg *openwechat.Message) (Message, error) {
	in := Message{Text: msg.Content, Group: msg.IsSendByGroup()}

	var (
		sender *openwechat.User
		err    error
	)
	if in.Group {
		sender, err = msg.SenderInGroup()
	} else {
		sender, err = msg.Sender()
	}
	if err != nil {
		return Message{}, err
	}

	in.UserID = senderKey(sender)
	in.Name = sender.NickName
	return in, nil
}

// senderKey picks the most stable id openwechat exposes for a user. Uin
// survives re-login but is often 0 on web logins; UserName changes with
// every session, so it is the last resort.
func senderKey(u *openwechat.User) string {
	if u.Uin != 0 {
		return strconv.FormatInt(u.Uin, 10)
	}
	for _, key := range []string{u.RemarkName, u.NickName, u.UserName} {
		if key != "" {
			return key
		}
	}
	return ""
}
