package chathub

import (
	"encoding/json"

	"fadechat/backend/internal/models"
	apperrors "fadechat/backend/pkg/errors"
)

// Inbound actions accepted on a connection.
const (
	ActionJoinChat                  = "JoinChat"
	ActionLeaveChat                 = "LeaveChat"
	ActionSendMessage               = "SendMessage"
	ActionMarkMessageReceived       = "MarkMessageReceived"
	ActionMarkMessageRead           = "MarkMessageRead"
	ActionFindRandomChat            = "FindRandomChat"
	ActionFindRandomChatWithFilters = "FindRandomChatWithFilters"
)

// Command is the typed union of client operations. Transports decode their
// wire format into one of these and hand it to Hub.Dispatch; there is exactly
// one routing switch in the system.
type Command interface {
	isCommand()
}

type JoinChatCommand struct {
	ChatID int `json:"chatId"`
}

type LeaveChatCommand struct {
	ChatID int `json:"chatId"`
}

type SendMessageCommand struct {
	Message models.ChatMessage
}

type MarkMessageReceivedCommand struct {
	ChatID int    `json:"chatId"`
	Guid   string `json:"guid"`
}

type MarkMessageReadCommand struct {
	ChatID int    `json:"chatId"`
	Guid   string `json:"guid"`
}

type FindRandomChatCommand struct {
	Filters *models.SearchFilters
}

func (JoinChatCommand) isCommand()            {}
func (LeaveChatCommand) isCommand()           {}
func (SendMessageCommand) isCommand()         {}
func (MarkMessageReceivedCommand) isCommand() {}
func (MarkMessageReadCommand) isCommand()     {}
func (FindRandomChatCommand) isCommand()      {}

// CommandEnvelope is the inbound wire frame: an action name plus its payload.
type CommandEnvelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// DecodeCommand turns a wire envelope into a typed command.
func DecodeCommand(env CommandEnvelope) (Command, error) {
	switch env.Action {
	case ActionJoinChat:
		var cmd JoinChatCommand
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			return nil, apperrors.InvalidArg("malformed JoinChat payload")
		}
		return cmd, nil

	case ActionLeaveChat:
		var cmd LeaveChatCommand
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			return nil, apperrors.InvalidArg("malformed LeaveChat payload")
		}
		return cmd, nil

	case ActionSendMessage:
		var msg models.ChatMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, apperrors.InvalidArg("malformed SendMessage payload")
		}
		return SendMessageCommand{Message: msg}, nil

	case ActionMarkMessageReceived:
		var cmd MarkMessageReceivedCommand
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			return nil, apperrors.InvalidArg("malformed MarkMessageReceived payload")
		}
		return cmd, nil

	case ActionMarkMessageRead:
		var cmd MarkMessageReadCommand
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			return nil, apperrors.InvalidArg("malformed MarkMessageRead payload")
		}
		return cmd, nil

	case ActionFindRandomChat:
		return FindRandomChatCommand{}, nil

	case ActionFindRandomChatWithFilters:
		var filters models.SearchFilters
		if err := json.Unmarshal(env.Data, &filters); err != nil {
			return nil, apperrors.InvalidArg("malformed search filters payload")
		}
		return FindRandomChatCommand{Filters: &filters}, nil

	default:
		return nil, apperrors.InvalidArg("unknown action: " + env.Action)
	}
}
